package rdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"go.uber.org/zap"
)

// TodoRepository は todos テーブルに対する実装。
// 書き込み系はそれぞれ 1 トランザクションで完結させる。
type TodoRepository struct {
	tx      *TxManager
	dialect Dialect
	retry   RetryPolicy
	logger  *zap.Logger
}

type Option func(*TodoRepository)

// WithDialect はエンジン固有の SQL（行ロック句など）を切り替える。デフォルトは SQLite。
func WithDialect(d Dialect) Option {
	return func(r *TodoRepository) { r.dialect = d }
}

func NewTodoRepository(txMgr *TxManager, logger *zap.Logger, opts ...Option) *TodoRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &TodoRepository{
		tx:      txMgr,
		dialect: SQLite,
		retry:   DefaultReadRetry,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithinTx は TxManager に委譲する（usecase から Transactor として使う）。
func (r *TodoRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.tx.WithinTx(ctx, fn)
}

// Insert は INSERT して、エンジンが振った ID を付けて返す
func (r *TodoRepository) Insert(ctx context.Context, title string) (*domain_todo.Todo, error) {
	t := domain_todo.New(title)

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := r.tx.conn(ctx).ExecContext(
			ctx,
			"INSERT INTO todos (title, completed) VALUES (?, ?)",
			t.Title,
			t.Completed,
		)
		if err != nil {
			return err
		}

		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}

	return t, nil
}

func (r *TodoRepository) Find(ctx context.Context, id int64) (*domain_todo.Todo, bool, error) {
	var (
		t     *domain_todo.Todo
		found bool
	)

	err := r.read(ctx, func() error {
		var err error
		t, found, err = r.findRow(ctx, id)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("find todo %d: %w", id, err)
	}
	return t, found, nil
}

// Update は completed だけを書き換え、書き換え後の行を読み直して返す
func (r *TodoRepository) Update(ctx context.Context, t *domain_todo.Todo) (*domain_todo.Todo, error) {
	var updated *domain_todo.Todo

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := r.tx.conn(ctx).ExecContext(
			ctx,
			"UPDATE todos SET completed = ? WHERE id = ?",
			t.Completed,
			t.ID,
		)
		if err != nil {
			return err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain_todo.ErrNotFound
		}

		row, ok, err := r.findRow(ctx, t.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain_todo.ErrNotFound
		}
		updated = row
		return nil
	})
	if err != nil {
		if errors.Is(err, domain_todo.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update todo %d: %w", t.ID, err)
	}

	return updated, nil
}

// Remove は削除件数 > 0 なら true を返す
func (r *TodoRepository) Remove(ctx context.Context, id int64) (bool, error) {
	var removed bool

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		res, err := r.tx.conn(ctx).ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
		if err != nil {
			return err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = affected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("remove todo %d: %w", id, err)
	}

	return removed, nil
}

// All は全件を ID 順で返す
func (r *TodoRepository) All(ctx context.Context) ([]*domain_todo.Todo, error) {
	var todos []*domain_todo.Todo

	err := r.read(ctx, func() error {
		rows, err := r.tx.conn(ctx).QueryContext(ctx, "SELECT id, title, completed FROM todos ORDER BY id")
		if err != nil {
			return err
		}
		defer rows.Close()

		list := make([]*domain_todo.Todo, 0)
		for rows.Next() {
			t, err := scanTodo(rows)
			if err != nil {
				return err
			}
			list = append(list, t)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		todos = list
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	return todos, nil
}

// read は Tx の外でだけリトライする（Tx 内で再実行しても意味が無い）
func (r *TodoRepository) read(ctx context.Context, fn func() error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn()
	}

	attempt := 0
	return doWithRetry(ctx, r.retry, func() error {
		attempt++
		err := fn()
		if err != nil && attempt > 1 {
			r.logger.Warn("db read retry failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
}

const selectTodoByID = "SELECT id, title, completed FROM todos WHERE id = ?"

// findQuery は Tx 内なら行ロック句を付ける（toggle の find → update を直列化する）
func findQuery(d Dialect, inTx bool) string {
	if inTx {
		return selectTodoByID + d.LockClause
	}
	return selectTodoByID
}

func (r *TodoRepository) findRow(ctx context.Context, id int64) (*domain_todo.Todo, bool, error) {
	_, inTx := TxFromContext(ctx)
	row := r.tx.conn(ctx).QueryRowContext(ctx, findQuery(r.dialect, inTx), id)

	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (*domain_todo.Todo, error) {
	var (
		t         domain_todo.Todo
		title     sql.NullString
		completed sql.NullBool
	)
	if err := s.Scan(&t.ID, &title, &completed); err != nil {
		return nil, err
	}
	t.Title = title.String
	t.Completed = completed.Bool
	return &t, nil
}
