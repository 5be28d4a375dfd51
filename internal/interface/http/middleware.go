package httpadapter

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hijjiri/todo-api/internal/interface/requestid"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AllowedOrigins は CORS を許可する固定のオリジン（フロントエンドの開発サーバ）。
var AllowedOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// 許可メソッドは「全部」
const allowedMethods = "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT"

// Observer は HTTP リクエストの計測先（Prometheus 側で実装）。
type Observer interface {
	ObserveHTTP(method, route string, code int, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveHTTP(string, string, int, time.Duration) {}

// statusRecorder は書かれたステータスコードを覚えておく
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// ----- request id -----

// withRequestID は X-Request-ID を引き継ぐか新規発行し、ctx とレスポンスヘッダに載せる
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := requestid.Sanitize(r.Header.Get(requestid.Header))
		w.Header().Set(requestid.Header, rid)
		next.ServeHTTP(w, r.WithContext(requestid.With(r.Context(), rid)))
	})
}

// ----- route label -----

// mux のルートテンプレートは router の内側でしか取れないので、
// 外側の observe から見えるように ctx に箱を置いておき、内側で埋める。
type routeKey struct{}

type routeInfo struct {
	template string
}

func captureRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, ok := r.Context().Value(routeKey{}).(*routeInfo); ok {
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					info.template = tpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ----- logging + metrics -----

// withObserve はメソッド・ルート・ステータス・所要時間をログとメトリクスに残す
func withObserve(logger *zap.Logger, obs Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			info := &routeInfo{template: "unmatched"}
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), routeKey{}, info)))

			duration := time.Since(start)
			code := rec.code()
			obs.ObserveHTTP(methodLabel(r.Method), info.template, code, duration)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", info.template),
				zap.Int("status", code),
				zap.Duration("duration", duration),
			}
			if rid, ok := requestid.FromContext(r.Context()); ok {
				fields = append(fields, zap.String("request_id", rid))
			}

			if code >= http.StatusInternalServerError {
				logger.Error("http request", fields...)
			} else {
				logger.Info("http request", fields...)
			}
		})
	}
}

// methodLabel は既知のメソッド以外を "other" にまとめる（ラベルの種類を有限に保つ）
func methodLabel(m string) string {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return m
	default:
		return "other"
	}
}

// ----- recovery -----

func withRecovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				logger.Error("panic recovered in http handler",
					zap.Any("panic", rv),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.ByteString("stacktrace", debug.Stack()),
				)
				writeDetail(w, http.StatusInternalServerError, "internal error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ----- timeout -----

// withTimeout は ctx に deadline を付ける。
// 既により短い deadline があればそちらを尊重する。
func withTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			if dl, ok := r.Context().Deadline(); ok && time.Until(dl) <= timeout {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ----- CORS -----

// withCORS は固定の許可リストに載っている Origin にだけ CORS ヘッダを返す。
// credentials 付きなので Allow-Origin は "*" ではなく Origin をそのまま返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			ok := allowed[origin]

			// preflight
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !ok {
					writeDetail(w, http.StatusBadRequest, "Disallowed CORS origin")
					return
				}
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", allowedMethods)
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				}
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusOK)
				return
			}

			if ok {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", strings.Join([]string{requestid.Header, "Content-Disposition"}, ", "))
			}
			next.ServeHTTP(w, r)
		})
	}
}
