package grpcadapter

import (
	"context"
	"runtime/debug"

	"github.com/hijjiri/todo-api/internal/interface/requestid"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func recoverToStatus(ctx context.Context, logger *zap.Logger, kind, method string, r any) error {
	rid, _ := requestid.FromContext(ctx)
	logger.Error("panic recovered in "+kind+" handler",
		zap.Any("panic", r),
		zap.String("method", method),
		zap.String("request_id", rid),
		zap.ByteString("stacktrace", debug.Stack()),
	)
	return status.Error(codes.Internal, "internal error")
}

// Unary 用 Recovery interceptor
func NewRecoveryUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				resp, err = nil, recoverToStatus(ctx, logger, "unary", info.FullMethod, r)
			}
		}()

		return handler(ctx, req)
	}
}

// Streaming 用 Recovery interceptor
func NewRecoveryStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recoverToStatus(ss.Context(), logger, "stream", info.FullMethod, r)
			}
		}()

		return handler(srv, ss)
	}
}
