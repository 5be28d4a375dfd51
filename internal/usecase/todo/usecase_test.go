// internal/usecase/todo/usecase_test.go
package todo_usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/hijjiri/todo-api/internal/infrastructure/memory"
	"go.uber.org/zap"
)

// テスト用のモック Repository
type mockRepo struct {
	// 挙動を制御するためのフィールド
	insertFn func(ctx context.Context, title string) (*domain_todo.Todo, error)
	findFn   func(ctx context.Context, id int64) (*domain_todo.Todo, bool, error)
	updateFn func(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error)
	removeFn func(ctx context.Context, id int64) (bool, error)
	allFn    func(ctx context.Context) ([]*domain_todo.Todo, error)
}

func (m *mockRepo) Insert(ctx context.Context, title string) (*domain_todo.Todo, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, title)
	}
	return &domain_todo.Todo{ID: 1, Title: title}, nil
}

func (m *mockRepo) Find(ctx context.Context, id int64) (*domain_todo.Todo, bool, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	return nil, false, nil
}

func (m *mockRepo) Update(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, t)
	}
	return t, nil
}

func (m *mockRepo) Remove(ctx context.Context, id int64) (bool, error) {
	if m.removeFn != nil {
		return m.removeFn(ctx, id)
	}
	return true, nil
}

func (m *mockRepo) All(ctx context.Context) ([]*domain_todo.Todo, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return []*domain_todo.Todo{}, nil
}

// 呼ばれた回数だけ数える Transactor
type countingTx struct {
	calls int
}

func (c *countingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return fn(ctx)
}

type fakeRecorder struct {
	mu  sync.Mutex
	got []string
}

func (f *fakeRecorder) RecordOperation(op, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, op+":"+result)
}

func TestUsecase_Create_Success(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		insertFn: func(ctx context.Context, title string) (*domain_todo.Todo, error) {
			// 疑似的にIDを付与する
			return &domain_todo.Todo{ID: 1, Title: title}, nil
		},
	}

	uc := New(repo, nil, zap.NewNop())

	got, err := uc.Create(context.Background(), "テストタイトル")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if got.ID != 1 {
		t.Errorf("expected ID=1, got %d", got.ID)
	}
	if got.Title != "テストタイトル" {
		t.Errorf("expected Title=%q, got %q", "テストタイトル", got.Title)
	}
	if got.Completed {
		t.Errorf("expected Completed=false, got true")
	}
}

func TestUsecase_Create_EmptyTitleAccepted(t *testing.T) {
	t.Parallel()

	uc := New(&mockRepo{}, nil, zap.NewNop())

	got, err := uc.Create(context.Background(), "")
	if err != nil {
		t.Fatalf("expected empty title to be accepted, got %v", err)
	}
	if got.Title != "" {
		t.Errorf("expected empty title, got %q", got.Title)
	}
}

func TestUsecase_Create_StoreFailure(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("storage unavailable")
	repo := &mockRepo{
		insertFn: func(ctx context.Context, title string) (*domain_todo.Todo, error) {
			return nil, storeErr
		},
	}
	rec := &fakeRecorder{}
	uc := New(repo, nil, zap.NewNop(), WithRecorder(rec))

	_, err := uc.Create(context.Background(), "x")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if len(rec.got) != 1 || rec.got[0] != "create:error" {
		t.Errorf("unexpected recorded operations: %v", rec.got)
	}
}

func TestUsecase_List_Success(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		allFn: func(ctx context.Context) ([]*domain_todo.Todo, error) {
			return []*domain_todo.Todo{
				{ID: 1, Title: "A", Completed: false},
				{ID: 2, Title: "B", Completed: true},
			}, nil
		},
	}

	uc := New(repo, nil, zap.NewNop())

	list, err := uc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(list) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(list))
	}
	if list[0].Title != "A" || list[1].Title != "B" {
		t.Errorf("unexpected titles: %#v", list)
	}
}

func TestUsecase_Toggle_FlipsInsideTx(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		findFn: func(ctx context.Context, id int64) (*domain_todo.Todo, bool, error) {
			return &domain_todo.Todo{ID: id, Title: "buy milk", Completed: false}, true, nil
		},
		updateFn: func(ctx context.Context, td *domain_todo.Todo) (*domain_todo.Todo, error) {
			if td.ID != 3 {
				t.Errorf("expected id=3, got %d", td.ID)
			}
			if !td.Completed {
				t.Errorf("expected flipped completed=true to be persisted")
			}
			return td, nil
		},
	}
	tx := &countingTx{}

	uc := New(repo, tx, zap.NewNop())

	got, err := uc.Toggle(context.Background(), 3)
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if !got.Completed || got.Title != "buy milk" {
		t.Errorf("unexpected toggled todo: %#v", got)
	}
	if tx.calls != 1 {
		t.Errorf("expected 1 transaction, got %d", tx.calls)
	}
}

func TestUsecase_Toggle_NotFound(t *testing.T) {
	t.Parallel()

	updated := false
	repo := &mockRepo{
		updateFn: func(ctx context.Context, td *domain_todo.Todo) (*domain_todo.Todo, error) {
			updated = true
			return td, nil
		},
	}
	rec := &fakeRecorder{}
	uc := New(repo, nil, zap.NewNop(), WithRecorder(rec))

	_, err := uc.Toggle(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if updated {
		t.Error("Update must not be called for a missing todo")
	}
	if len(rec.got) != 1 || rec.got[0] != "toggle:not_found" {
		t.Errorf("unexpected recorded operations: %v", rec.got)
	}
}

func TestUsecase_Delete_Success(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		removeFn: func(ctx context.Context, id int64) (bool, error) {
			if id != 1 {
				t.Errorf("expected id=1, got %d", id)
			}
			return true, nil
		},
	}

	uc := New(repo, nil, zap.NewNop())

	if err := uc.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}

func TestUsecase_Delete_NotFound(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{
		removeFn: func(ctx context.Context, id int64) (bool, error) {
			return false, nil // 削除対象なし
		},
	}
	uc := New(repo, nil, zap.NewNop())

	err := uc.Delete(context.Background(), 123)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// 一連の流れを memory 実装で確認する
func TestUsecase_Scenario_InMemory(t *testing.T) {
	t.Parallel()

	repo := memory.NewTodoRepository()
	uc := New(repo, repo, zap.NewNop())
	ctx := context.Background()

	milk, err := uc.Create(ctx, "buy milk")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if *milk != (domain_todo.Todo{ID: 1, Title: "buy milk", Completed: false}) {
		t.Errorf("unexpected first todo: %#v", milk)
	}

	dog, err := uc.Create(ctx, "walk dog")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if dog.ID != 2 {
		t.Errorf("expected id=2, got %d", dog.ID)
	}

	list, _ := uc.List(ctx)
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 2 {
		t.Fatalf("expected two todos in creation order, got %#v", list)
	}

	toggled, err := uc.Toggle(ctx, 1)
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if *toggled != (domain_todo.Todo{ID: 1, Title: "buy milk", Completed: true}) {
		t.Errorf("unexpected toggled todo: %#v", toggled)
	}

	if err := uc.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	list, _ = uc.List(ctx)
	if len(list) != 1 || list[0].ID != 1 || !list[0].Completed {
		t.Fatalf("expected only todo 1 (completed), got %#v", list)
	}

	if _, err := uc.Toggle(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("toggle(2): expected ErrNotFound, got %v", err)
	}
	if err := uc.Delete(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete(99): expected ErrNotFound, got %v", err)
	}
	if err := uc.Delete(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete(2): expected ErrNotFound, got %v", err)
	}

	// 失敗した操作で中身が変わっていないこと
	list, _ = uc.List(ctx)
	if len(list) != 1 {
		t.Errorf("expected store unchanged after failures, got %d todos", len(list))
	}
}

func TestUsecase_Toggle_Involution(t *testing.T) {
	t.Parallel()

	repo := memory.NewTodoRepository()
	uc := New(repo, repo, zap.NewNop())
	ctx := context.Background()

	created, _ := uc.Create(ctx, "twice")

	first, err := uc.Toggle(ctx, created.ID)
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	second, err := uc.Toggle(ctx, created.ID)
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}

	if first.Completed == created.Completed {
		t.Errorf("first toggle did not flip completed")
	}
	if second.Completed != created.Completed {
		t.Errorf("second toggle did not restore completed")
	}
}
