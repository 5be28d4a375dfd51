package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveHTTP("GET", "/todos", 200, 10*time.Millisecond)
	m.ObserveHTTP("GET", "/todos", 200, 20*time.Millisecond)
	m.RecordOperation("toggle", "not_found")
	m.ObserveGRPC("/todo.v1.TodoService/ListTodos", "OK")

	if got := promtest.ToFloat64(m.httpRequests.WithLabelValues("GET", "/todos", "200")); got != 2 {
		t.Errorf("expected 2 http requests, got %v", got)
	}
	if got := promtest.ToFloat64(m.operations.WithLabelValues("toggle", "not_found")); got != 1 {
		t.Errorf("expected 1 toggle not_found, got %v", got)
	}
	if got := promtest.ToFloat64(m.grpcRequests.WithLabelValues("/todo.v1.TodoService/ListTodos", "OK")); got != 1 {
		t.Errorf("expected 1 grpc request, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordOperation("create", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `todo_operations_total{op="create",result="ok"} 1`) {
		t.Errorf("metrics output missing operation counter:\n%s", rec.Body.String())
	}
}

func TestSetupTracing_Stdout(t *testing.T) {
	var buf bytes.Buffer

	shutdown, err := SetupTracing("stdout", &buf, "todo-api-test")
	if err != nil {
		t.Fatalf("SetupTracing returned error: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "unit-span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "unit-span") {
		t.Errorf("expected exported span in output, got %q", buf.String())
	}
}

func TestSetupTracing_UnknownMode(t *testing.T) {
	if _, err := SetupTracing("jaeger", nil, "x"); err == nil {
		t.Fatal("expected error for unknown mode, got nil")
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"dev", "prod"} {
		logger, err := NewLogger(env)
		if err != nil {
			t.Fatalf("NewLogger(%q) returned error: %v", env, err)
		}
		_ = logger.Sync()
	}
}
