package grpcadapter

import (
	"context"
	"errors"
	"fmt"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/hijjiri/todo-api/internal/interface/requestid"
	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type TodoHandler struct {
	uc     todo_usecase.Usecase
	logger *zap.Logger
}

func NewTodoHandler(uc todo_usecase.Usecase, logger *zap.Logger) *TodoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoHandler{uc: uc, logger: logger}
}

// --- List ---
func (h *TodoHandler) ListTodos(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	list, err := h.uc.List(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}

	resp := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(list))}
	for _, t := range list {
		resp.Values = append(resp.Values, structpb.NewStructValue(toProtoTodo(t)))
	}
	return resp, nil
}

// 既存の ListTodos と同じ usecase を呼んで、1 件ずつ stream.Send する
func (h *TodoHandler) ListTodosStream(_ *emptypb.Empty, stream TodoListStream) error {
	ctx := stream.Context()

	todos, err := h.uc.List(ctx)
	if err != nil {
		return h.toStatus(ctx, err)
	}

	for _, t := range todos {
		if err := stream.Send(toProtoTodo(t)); err != nil {
			// クライアント側が切断した場合など
			h.logger.Warn("failed to send todo (stream)", zap.Int64("id", t.ID), zap.Error(err))
			return err
		}
	}
	return nil
}

// --- Create ---
func (h *TodoHandler) CreateTodo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	t, err := h.uc.Create(ctx, req.GetValue())
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return toProtoTodo(t), nil
}

// --- Toggle ---
func (h *TodoHandler) ToggleTodo(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	t, err := h.uc.Toggle(ctx, req.GetValue())
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return toProtoTodo(t), nil
}

// --- Delete ---
func (h *TodoHandler) DeleteTodo(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	if err := h.uc.Delete(ctx, req.GetValue()); err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return wrapperspb.String("Todo deleted successfully"), nil
}

// --- converter (domain <-> proto) ---

// toProtoTodo は Todo を Struct にする。数値は float64 になるが、ID は 2^53 未満の前提。
func toProtoTodo(t *domain_todo.Todo) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":        structpb.NewNumberValue(float64(t.ID)),
		"title":     structpb.NewStringValue(t.Title),
		"completed": structpb.NewBoolValue(t.Completed),
	}}
}

// FromProtoTodo は Struct を Todo に戻す（クライアント側で使う）。
func FromProtoTodo(s *structpb.Struct) (*domain_todo.Todo, error) {
	f := s.GetFields()

	id, ok := f["id"].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil, fmt.Errorf("todo struct: missing numeric id")
	}
	title, ok := f["title"].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, fmt.Errorf("todo struct: missing title")
	}
	completed, ok := f["completed"].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return nil, fmt.Errorf("todo struct: missing completed")
	}

	return &domain_todo.Todo{
		ID:        int64(id.NumberValue),
		Title:     title.StringValue,
		Completed: completed.BoolValue,
	}, nil
}

// --- error mapper ---

// toStatus は toGRPCError に加えて、Internal になるものだけ元のエラーをログに残す
func (h *TodoHandler) toStatus(ctx context.Context, err error) error {
	st := toGRPCError(err)
	if status.Code(st) == codes.Internal {
		rid, _ := requestid.FromContext(ctx)
		h.logger.Error("todo rpc failed", zap.String("request_id", rid), zap.Error(err))
	}
	return st
}

func toGRPCError(err error) error {
	switch {
	case errors.Is(err, todo_usecase.ErrNotFound):
		return status.Error(codes.NotFound, "todo not found")

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return mapContextErrToStatus(err)

	default:
		// Internal詳細はログ側にだけ残す
		return status.Error(codes.Internal, "internal error")
	}
}

func mapContextErrToStatus(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timeout")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	default:
		return status.Error(codes.Internal, "context error")
	}
}
