package grpcadapter

import (
	"context"
	"errors"
	"io"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// TodoClient は TodoService のクライアント（cmd/todo_client とテストで使う）。
type TodoClient struct {
	cc grpc.ClientConnInterface
}

func NewTodoClient(cc grpc.ClientConnInterface) *TodoClient {
	return &TodoClient{cc: cc}
}

func (c *TodoClient) List(ctx context.Context, opts ...grpc.CallOption) ([]*domain_todo.Todo, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, ListTodosFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}

	todos := make([]*domain_todo.Todo, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		t, err := FromProtoTodo(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, nil
}

// ListStream は ListTodosStream を最後まで読んで返す
func (c *TodoClient) ListStream(ctx context.Context, opts ...grpc.CallOption) ([]*domain_todo.Todo, error) {
	stream, err := c.cc.NewStream(ctx, &TodoServiceDesc.Streams[0], ListTodosStreamFullMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	var todos []*domain_todo.Todo
	for {
		m := new(structpb.Struct)
		err := stream.RecvMsg(m)
		if errors.Is(err, io.EOF) {
			return todos, nil
		}
		if err != nil {
			return nil, err
		}
		t, err := FromProtoTodo(m)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
}

func (c *TodoClient) Create(ctx context.Context, title string, opts ...grpc.CallOption) (*domain_todo.Todo, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CreateTodoFullMethod, wrapperspb.String(title), out, opts...); err != nil {
		return nil, err
	}
	return FromProtoTodo(out)
}

func (c *TodoClient) Toggle(ctx context.Context, id int64, opts ...grpc.CallOption) (*domain_todo.Todo, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ToggleTodoFullMethod, wrapperspb.Int64(id), out, opts...); err != nil {
		return nil, err
	}
	return FromProtoTodo(out)
}

func (c *TodoClient) Delete(ctx context.Context, id int64, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, DeleteTodoFullMethod, wrapperspb.Int64(id), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
