package grpcadapter

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// todo.v1.TodoService は .proto からの生成ではなく、well-known types だけで組んだ手書きの ServiceDesc。
// Todo は {id, title, completed} を持つ google.protobuf.Struct で表す。
const TodoServiceName = "todo.v1.TodoService"

const (
	ListTodosFullMethod       = "/" + TodoServiceName + "/ListTodos"
	ListTodosStreamFullMethod = "/" + TodoServiceName + "/ListTodosStream"
	CreateTodoFullMethod      = "/" + TodoServiceName + "/CreateTodo"
	ToggleTodoFullMethod      = "/" + TodoServiceName + "/ToggleTodo"
	DeleteTodoFullMethod      = "/" + TodoServiceName + "/DeleteTodo"
)

// TodoServiceServer は TodoService のサーバ側インターフェース
type TodoServiceServer interface {
	ListTodos(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
	ListTodosStream(req *emptypb.Empty, stream TodoListStream) error
	CreateTodo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ToggleTodo(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	DeleteTodo(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.StringValue, error)
}

// TodoListStream は ListTodosStream のサーバ側ストリーム
type TodoListStream interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type todoListStream struct {
	grpc.ServerStream
}

func (s *todoListStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func RegisterTodoServiceServer(s grpc.ServiceRegistrar, srv TodoServiceServer) {
	s.RegisterService(&TodoServiceDesc, srv)
}

var TodoServiceDesc = grpc.ServiceDesc{
	ServiceName: TodoServiceName,
	HandlerType: (*TodoServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTodos", Handler: listTodosHandler},
		{MethodName: "CreateTodo", Handler: createTodoHandler},
		{MethodName: "ToggleTodo", Handler: toggleTodoHandler},
		{MethodName: "DeleteTodo", Handler: deleteTodoHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ListTodosStream", Handler: listTodosStreamHandler, ServerStreams: true},
	},
	Metadata: "todo/v1/todo.proto",
}

func listTodosHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TodoServiceServer).ListTodos(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListTodosFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TodoServiceServer).ListTodos(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func createTodoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TodoServiceServer).CreateTodo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateTodoFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TodoServiceServer).CreateTodo(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func toggleTodoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TodoServiceServer).ToggleTodo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ToggleTodoFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TodoServiceServer).ToggleTodo(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteTodoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TodoServiceServer).DeleteTodo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeleteTodoFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TodoServiceServer).DeleteTodo(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func listTodosStreamHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TodoServiceServer).ListTodosStream(in, &todoListStream{stream})
}
