// Package httpadapter は usecase を HTTP(JSON) に公開する境界層。
package httpadapter

import (
	"net/http"
	"time"

	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Options struct {
	Logger         *zap.Logger
	Observer       Observer
	RequestTimeout time.Duration
	// 空なら AllowedOrigins
	AllowedOrigins []string
}

// NewRouter はルーティングとミドルウェアを組み立てた http.Handler を返す。
//
// 外側から: otel → request id → observe(log/metrics) → recovery → CORS → mux(route capture → timeout)
func NewRouter(uc todo_usecase.Usecase, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var obs Observer = noopObserver{}
	if opts.Observer != nil {
		obs = opts.Observer
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = AllowedOrigins
	}

	h := NewTodoHandler(uc, logger)

	r := mux.NewRouter()
	r.Use(captureRoute, withTimeout(opts.RequestTimeout))

	r.HandleFunc("/", h.Root).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/todos", h.List).Methods(http.MethodGet)
	r.HandleFunc("/todos", h.Create).Methods(http.MethodPost)
	// /todos/{id} より先に登録しないと export が id 扱いされる
	r.HandleFunc("/todos/export", h.Export).Methods(http.MethodGet)
	r.HandleFunc("/todos/{id}", h.Toggle).Methods(http.MethodPut)
	r.HandleFunc("/todos/{id}", h.Delete).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	var handler http.Handler = r
	handler = withCORS(origins)(handler)
	handler = withRecovery(logger)(handler)
	handler = withObserve(logger, obs)(handler)
	handler = withRequestID(handler)

	return otelhttp.NewHandler(handler, "todo-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
