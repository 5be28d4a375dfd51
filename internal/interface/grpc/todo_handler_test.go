package grpcadapter

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/hijjiri/todo-api/internal/infrastructure/memory"
	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// startServer は bufconn 上で gRPC サーバを立て、接続済みの ClientConn を返す
func startServer(t *testing.T, uc todo_usecase.Usecase, opts ServerOptions) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv, _ := NewServer(uc, opts)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial bufnet: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newMemoryUsecase() todo_usecase.Usecase {
	repo := memory.NewTodoRepository()
	return todo_usecase.New(repo, repo, zap.NewNop())
}

func TestTodoService_Scenario(t *testing.T) {
	conn := startServer(t, newMemoryUsecase(), ServerOptions{RequestTimeout: time.Second})
	client := NewTodoClient(conn)
	ctx := context.Background()

	milk, err := client.Create(ctx, "buy milk")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if *milk != (domain_todo.Todo{ID: 1, Title: "buy milk"}) {
		t.Errorf("unexpected created todo: %#v", milk)
	}
	if _, err := client.Create(ctx, "walk dog"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	toggled, err := client.Toggle(ctx, 1)
	if err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	if !toggled.Completed {
		t.Errorf("expected completed=true, got %#v", toggled)
	}

	msg, err := client.Delete(ctx, 2)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if msg != "Todo deleted successfully" {
		t.Errorf("unexpected delete message %q", msg)
	}

	list, err := client.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 1 || list[0].ID != 1 || !list[0].Completed {
		t.Errorf("unexpected list %#v", list)
	}

	streamed, err := client.ListStream(ctx)
	if err != nil {
		t.Fatalf("ListStream returned error: %v", err)
	}
	if len(streamed) != 1 || streamed[0].ID != 1 {
		t.Errorf("unexpected streamed list %#v", streamed)
	}

	_, err = client.Toggle(ctx, 2)
	if status.Code(err) != codes.NotFound {
		t.Errorf("toggle(2): expected NotFound, got %v", err)
	}
	_, err = client.Delete(ctx, 99)
	if status.Code(err) != codes.NotFound {
		t.Errorf("delete(99): expected NotFound, got %v", err)
	}
}

func TestTodoService_RequestIDHeader(t *testing.T) {
	conn := startServer(t, newMemoryUsecase(), ServerOptions{})
	client := NewTodoClient(conn)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "rid-1")
	var header metadata.MD
	if _, err := client.List(ctx, grpc.Header(&header)); err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if got := header.Get("x-request-id"); len(got) != 1 || got[0] != "rid-1" {
		t.Errorf("expected request id to be echoed, got %v", got)
	}
}

func TestTodoService_Health(t *testing.T) {
	conn := startServer(t, newMemoryUsecase(), ServerOptions{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: TodoServiceName})
	if err != nil {
		t.Fatalf("health check returned error: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.GetStatus())
	}
}

// ---- usecase のスタブ ----

type stubUsecase struct {
	todo_usecase.Usecase
	listFn func(ctx context.Context) ([]*domain_todo.Todo, error)
}

func (s *stubUsecase) List(ctx context.Context) ([]*domain_todo.Todo, error) {
	return s.listFn(ctx)
}

type fakeObserver struct {
	mu    sync.Mutex
	codes []string
}

func (f *fakeObserver) ObserveGRPC(method, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
}

func TestTodoService_InternalErrorIsMasked(t *testing.T) {
	obs := &fakeObserver{}
	uc := &stubUsecase{listFn: func(ctx context.Context) ([]*domain_todo.Todo, error) {
		return nil, errors.New("secret db failure")
	}}
	conn := startServer(t, uc, ServerOptions{Observer: obs})

	_, err := NewTodoClient(conn).List(context.Background())
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected gRPC status error, got %v", err)
	}
	if st.Code() != codes.Internal || st.Message() != "internal error" {
		t.Errorf("unexpected status %v", st)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.codes) != 1 || obs.codes[0] != codes.Internal.String() {
		t.Errorf("unexpected observed codes %v", obs.codes)
	}
}

func TestTodoService_PanicIsRecovered(t *testing.T) {
	uc := &stubUsecase{listFn: func(ctx context.Context) ([]*domain_todo.Todo, error) {
		panic("boom")
	}}
	conn := startServer(t, uc, ServerOptions{})

	_, err := NewTodoClient(conn).List(context.Background())
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}

	// stream 側も同じ
	_, err = NewTodoClient(conn).ListStream(context.Background())
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal from stream, got %v", err)
	}
}

func TestTodoService_Timeout(t *testing.T) {
	uc := &stubUsecase{listFn: func(ctx context.Context) ([]*domain_todo.Todo, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	conn := startServer(t, uc, ServerOptions{RequestTimeout: 20 * time.Millisecond})

	_, err := NewTodoClient(conn).List(context.Background())
	if status.Code(err) != codes.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestFromProtoTodo_RejectsMalformed(t *testing.T) {
	good := toProtoTodo(&domain_todo.Todo{ID: 5, Title: "x", Completed: true})
	got, err := FromProtoTodo(good)
	if err != nil {
		t.Fatalf("FromProtoTodo returned error: %v", err)
	}
	if got.ID != 5 || got.Title != "x" || !got.Completed {
		t.Errorf("unexpected todo %#v", got)
	}

	delete(good.Fields, "title")
	if _, err := FromProtoTodo(good); err == nil {
		t.Error("expected error for struct without title")
	}
}

func TestToGRPCError(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{todo_usecase.ErrNotFound, codes.NotFound},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{errors.New("other"), codes.Internal},
	}
	for _, c := range cases {
		if got := status.Code(toGRPCError(c.err)); got != c.want {
			t.Errorf("%v: expected %v, got %v", c.err, c.want, got)
		}
	}
}

func TestTodoService_SlowSuccessIsNotRewritten(t *testing.T) {
	uc := &stubUsecase{listFn: func(ctx context.Context) ([]*domain_todo.Todo, error) {
		// deadline を過ぎても成功として返す（書き込み済みの結果に相当）
		<-ctx.Done()
		return []*domain_todo.Todo{{ID: 1, Title: "done anyway"}}, nil
	}}
	conn := startServer(t, uc, ServerOptions{RequestTimeout: 20 * time.Millisecond})

	list, err := NewTodoClient(conn).List(context.Background())
	if err != nil {
		t.Fatalf("expected success to be kept, got %v", err)
	}
	if len(list) != 1 || list[0].Title != "done anyway" {
		t.Errorf("unexpected list %#v", list)
	}
}
