// Package requestid は HTTP / gRPC 共通のリクエスト ID を扱う。
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header は HTTP ヘッダ / gRPC メタデータのキー。
const Header = "X-Request-ID"

type ctxKey struct{}

// With は rid を context に埋め込む
func With(ctx context.Context, rid string) context.Context {
	if rid == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, rid)
}

// FromContext は context から request id を取り出す
func FromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKey{}).(string)
	return s, ok && s != ""
}

// New は新しい request id を払い出す
func New() string {
	return uuid.NewString()
}

// Sanitize は外から来た ID を採用してよいか判定し、ダメなら新規発行する。
// 長すぎる値やログを汚す制御文字は捨てる。
func Sanitize(in string) string {
	if in == "" || len(in) > 128 {
		return New()
	}
	for _, r := range in {
		if r < 0x20 || r == 0x7f {
			return New()
		}
	}
	return in
}
