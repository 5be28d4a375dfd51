package grpcadapter

import (
	"context"
	"time"

	"github.com/hijjiri/todo-api/internal/interface/requestid"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Observer は RPC ごとの計測先（Prometheus 側で実装）。
type Observer interface {
	ObserveGRPC(method, code string)
}

type noopObserver struct{}

func (noopObserver) ObserveGRPC(string, string) {}

func logFields(ctx context.Context, method string, duration time.Duration, code codes.Code) []zap.Field {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("code", code.String()),
		zap.Duration("duration", duration),
	}
	if rid, ok := requestid.FromContext(ctx); ok {
		fields = append(fields, zap.String("request_id", rid))
	}
	return fields
}

// クライアント起因のコードは Info、それ以外の失敗は Error で出す
func logRPC(logger *zap.Logger, msg string, fields []zap.Field, code codes.Code, err error) {
	switch code {
	case codes.OK:
		logger.Info(msg, fields...)
	case codes.NotFound, codes.InvalidArgument, codes.Canceled:
		logger.Info(msg, append(fields, zap.Error(err))...)
	default:
		logger.Error(msg, append(fields, zap.Error(err))...)
	}
}

// NewLoggingUnaryInterceptor logs unary RPCs with method, code, duration and request_id.
func NewLoggingUnaryInterceptor(logger *zap.Logger, obs Observer) grpc.UnaryServerInterceptor {
	if obs == nil {
		obs = noopObserver{}
	}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		code := status.Code(err)
		obs.ObserveGRPC(info.FullMethod, code.String())
		logRPC(logger, "gRPC unary request", logFields(ctx, info.FullMethod, time.Since(start), code), code, err)

		return resp, err
	}
}

// NewLoggingStreamInterceptor logs stream RPCs the same way.
func NewLoggingStreamInterceptor(logger *zap.Logger, obs Observer) grpc.StreamServerInterceptor {
	if obs == nil {
		obs = noopObserver{}
	}
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()

		err := handler(srv, ss)

		code := status.Code(err)
		obs.ObserveGRPC(info.FullMethod, code.String())
		logRPC(logger, "gRPC stream request", logFields(ss.Context(), info.FullMethod, time.Since(start), code), code, err)

		return err
	}
}
