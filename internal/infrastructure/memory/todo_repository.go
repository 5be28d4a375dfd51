// internal/infrastructure/memory/todo_repository.go
package memory

import (
	"context"
	"sync"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
)

// TodoRepository はプロセス内のスライスに Todo を保持する実装。
// 再起動で中身は消える。
type TodoRepository struct {
	mu    sync.RWMutex
	next  int64
	items []*domain_todo.Todo // 作成順

	// WithinTx 同士を直列化するためのロック（mu とは別物）
	txMu sync.Mutex
}

func NewTodoRepository() *TodoRepository {
	return &TodoRepository{
		next:  1,
		items: make([]*domain_todo.Todo, 0),
	}
}

// Insert は採番して末尾に追加する。削除済みの ID は再利用しない。
func (r *TodoRepository) Insert(ctx context.Context, title string) (*domain_todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t := domain_todo.New(title)
	t.ID = r.next
	r.next++

	r.items = append(r.items, t)
	return t.Clone(), nil
}

func (r *TodoRepository) Find(ctx context.Context, id int64) (*domain_todo.Todo, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, false, nil
	}
	return r.items[i].Clone(), true, nil
}

// Update は completed だけを上書きする（title は不変）。
func (r *TodoRepository) Update(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(t.ID)
	if i < 0 {
		return nil, domain_todo.ErrNotFound
	}
	r.items[i].Completed = t.Completed
	return r.items[i].Clone(), nil
}

func (r *TodoRepository) Remove(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false, nil
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return true, nil
}

// All は作成順のコピーを返す。
func (r *TodoRepository) All(ctx context.Context) ([]*domain_todo.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	todos := make([]*domain_todo.Todo, 0, len(r.items))
	for _, t := range r.items {
		todos = append(todos, t.Clone())
	}
	return todos, nil
}

// WithinTx は fn を他の WithinTx と排他で実行する。
// ロールバックは無いので、fn の途中までの変更は残る。
func (r *TodoRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	return fn(ctx)
}

// ID は昇順なので二分探索でもいいが、件数が少ない前提で線形探索にしている
func (r *TodoRepository) indexOf(id int64) int {
	for i, t := range r.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}
