package todo_usecase

import (
	"context"
	"errors"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ===== エラー定数（Handler側からも使う） =====

// ErrNotFound は domain の sentinel をそのまま公開したもの。
var ErrNotFound = domain_todo.ErrNotFound

// ===== 外部に公開する Usecase インターフェース =====

type Usecase interface {
	List(ctx context.Context) ([]*domain_todo.Todo, error)
	Create(ctx context.Context, title string) (*domain_todo.Todo, error)
	Toggle(ctx context.Context, id int64) (*domain_todo.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// Recorder は操作ごとの結果を数える（Prometheus 側で実装）。
type Recorder interface {
	RecordOperation(op, result string)
}

type Option func(*usecase)

// WithRecorder は操作カウンタを差し込む。
func WithRecorder(r Recorder) Option {
	return func(u *usecase) {
		if r != nil {
			u.rec = r
		}
	}
}

// ===== 実装 =====

type usecase struct {
	repo   domain_todo.Repository
	tx     domain_todo.Transactor
	logger *zap.Logger
	tracer trace.Tracer
	rec    Recorder
}

// New は Usecase を組み立てる。tx が nil なら Toggle の find+update は直列化されない。
func New(repo domain_todo.Repository, tx domain_todo.Transactor, logger *zap.Logger, opts ...Option) Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tx == nil {
		tx = noopTx{}
	}

	u := &usecase{
		repo:   repo,
		tx:     tx,
		logger: logger,
		tracer: otel.Tracer("github.com/hijjiri/todo-api/internal/usecase/todo"),
		rec:    noopRecorder{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// List ユースケース
func (u *usecase) List(ctx context.Context) ([]*domain_todo.Todo, error) {
	ctx, span := u.tracer.Start(ctx, "todo.List")
	defer span.End()

	todos, err := u.repo.All(ctx)
	u.finish(span, "list", err)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	return todos, nil
}

// Create ユースケース
// タイトルの中身は検証しない（空文字もそのまま保存する）
func (u *usecase) Create(ctx context.Context, title string) (*domain_todo.Todo, error) {
	ctx, span := u.tracer.Start(ctx, "todo.Create")
	defer span.End()

	t, err := u.repo.Insert(ctx, title)
	u.finish(span, "create", err)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("todo.id", t.ID))
	u.logger.Info("todo created", zap.Int64("id", t.ID))
	return t, nil
}

// Toggle ユースケース
// find → 反転 → update を 1 トランザクションで行う
func (u *usecase) Toggle(ctx context.Context, id int64) (*domain_todo.Todo, error) {
	ctx, span := u.tracer.Start(ctx, "todo.Toggle", trace.WithAttributes(attribute.Int64("todo.id", id)))
	defer span.End()

	var updated *domain_todo.Todo
	err := u.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, ok, err := u.repo.Find(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		t.Toggle()

		updated, err = u.repo.Update(ctx, t)
		return err
	})
	u.finish(span, "toggle", err)
	if err != nil {
		return nil, err
	}

	u.logger.Info("todo toggled", zap.Int64("id", id), zap.Bool("completed", updated.Completed))
	return updated, nil
}

// Delete ユースケース
func (u *usecase) Delete(ctx context.Context, id int64) error {
	ctx, span := u.tracer.Start(ctx, "todo.Delete", trace.WithAttributes(attribute.Int64("todo.id", id)))
	defer span.End()

	ok, err := u.repo.Remove(ctx, id)
	if err == nil && !ok {
		err = ErrNotFound
	}
	u.finish(span, "delete", err)
	if err != nil {
		return err
	}

	u.logger.Info("todo deleted", zap.Int64("id", id))
	return nil
}

// finish は span の状態とカウンタをまとめて更新する。
// NotFound はクライアント起因なので span をエラーにしない。
func (u *usecase) finish(span trace.Span, op string, err error) {
	switch {
	case err == nil:
		u.rec.RecordOperation(op, "ok")
	case errors.Is(err, ErrNotFound):
		span.SetAttributes(attribute.Bool("todo.not_found", true))
		u.rec.RecordOperation(op, "not_found")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		u.rec.RecordOperation(op, "error")
	}
}

type noopTx struct{}

func (noopTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type noopRecorder struct{}

func (noopRecorder) RecordOperation(string, string) {}
