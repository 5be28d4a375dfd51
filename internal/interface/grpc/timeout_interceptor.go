package grpcadapter

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// withDeadline は timeout を ctx に付与する。
// timeout <= 0 か、既により短い deadline があれば ctx をそのまま返す。
func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// NewTimeoutUnaryInterceptor は、各 unary RPC にタイムアウトを付与する interceptor。
// handler/usecase/repo まで ctx deadline を伝播させ、DB 等のブロックを切る。
func NewTimeoutUnaryInterceptor(logger *zap.Logger, timeout time.Duration) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx2, cancel := withDeadline(ctx, timeout)
		defer cancel()

		resp, err := handler(ctx2, req)

		// 失敗したときだけ DeadlineExceeded に寄せる。成功済みの結果は捨てない
		if err != nil && errors.Is(ctx2.Err(), context.DeadlineExceeded) {
			logger.Warn("request timeout",
				zap.String("method", info.FullMethod),
				zap.Duration("timeout", timeout),
			)
			return nil, status.Error(codes.DeadlineExceeded, "request timeout")
		}

		return resp, err
	}
}

// NewTimeoutStreamInterceptor は stream 全体にタイムアウトを付与する。
func NewTimeoutStreamInterceptor(timeout time.Duration) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, cancel := withDeadline(ss.Context(), timeout)
		defer cancel()

		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}
