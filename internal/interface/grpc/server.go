// Package grpcadapter は usecase を gRPC に公開する境界層。
package grpcadapter

import (
	"time"

	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type ServerOptions struct {
	Logger         *zap.Logger
	Observer       Observer
	RequestTimeout time.Duration
}

// NewServer は interceptor・health・reflection 込みの gRPC サーバを組み立てる。
// 返り値の health.Server は shutdown 時に NOT_SERVING へ切り替えるために使う。
func NewServer(uc todo_usecase.Usecase, opts ServerOptions) (*grpc.Server, *health.Server) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	unaryInterceptors := []grpc.UnaryServerInterceptor{
		NewRequestIDUnaryInterceptor(),
		NewLoggingUnaryInterceptor(logger, opts.Observer),
		NewRecoveryUnaryInterceptor(logger),
		NewTimeoutUnaryInterceptor(logger, opts.RequestTimeout),
	}

	streamInterceptors := []grpc.StreamServerInterceptor{
		NewRequestIDStreamInterceptor(),
		NewLoggingStreamInterceptor(logger, opts.Observer),
		NewRecoveryStreamInterceptor(logger),
		NewTimeoutStreamInterceptor(opts.RequestTimeout),
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
		grpc.ChainStreamInterceptor(streamInterceptors...),
	)

	// ---- Health & Reflection ----
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(TodoServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	// ---- Todo Service ----
	RegisterTodoServiceServer(grpcServer, NewTodoHandler(uc, logger))

	return grpcServer, healthSrv
}
