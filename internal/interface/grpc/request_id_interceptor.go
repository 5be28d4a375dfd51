package grpcadapter

import (
	"context"
	"strings"

	"github.com/hijjiri/todo-api/internal/interface/requestid"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// gRPC メタデータのキーは小文字
var requestIDKey = strings.ToLower(requestid.Header)

// incomingRequestID はメタデータの x-request-id を採用するか、新規発行する
func incomingRequestID(ctx context.Context) string {
	var raw string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDKey); len(v) > 0 {
			raw = v[0]
		}
	}
	return requestid.Sanitize(raw)
}

// NewRequestIDUnaryInterceptor は request id を ctx に載せ、レスポンスヘッダでも返す
func NewRequestIDUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rid := incomingRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDKey, rid))
		return handler(requestid.With(ctx, rid), req)
	}
}

// stream は ctx を差し替えられないので ServerStream を包む
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

func NewRequestIDStreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		rid := incomingRequestID(ss.Context())
		_ = ss.SetHeader(metadata.Pairs(requestIDKey, rid))
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: requestid.With(ss.Context(), rid)})
	}
}
