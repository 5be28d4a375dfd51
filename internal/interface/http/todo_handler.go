package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/hijjiri/todo-api/internal/export"
	"github.com/hijjiri/todo-api/internal/interface/requestid"
	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type TodoHandler struct {
	uc       todo_usecase.Usecase
	exporter *export.Exporter
	logger   *zap.Logger
}

func NewTodoHandler(uc todo_usecase.Usecase, logger *zap.Logger) *TodoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoHandler{
		uc:       uc,
		exporter: export.NewExporter(uc),
		logger:   logger,
	}
}

// createTodoRequest の Title はポインタにして「キー無し」と「空文字」を区別する
type createTodoRequest struct {
	Title *string `json:"title"`
}

// --- GET / ---
func (h *TodoHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Todo API is running"})
}

// --- GET /todos ---
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	todos, err := h.uc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if todos == nil {
		todos = []*domain_todo.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

// --- POST /todos ---
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	// JSON 値は 1 つだけ。後ろに何か続いていたら壊れたボディとして扱う
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: unexpected data after JSON value")
		return
	}
	if req.Title == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "title: field required")
		return
	}

	t, err := h.uc.Create(r.Context(), *req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- PUT /todos/{id} ---
func (h *TodoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := h.uc.Toggle(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- DELETE /todos/{id} ---
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.uc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Todo deleted successfully"})
}

// --- GET /todos/export?format=json|csv|pdf ---
func (h *TodoHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")

	b, contentType, err := h.exporter.Export(r.Context(), format)
	if err != nil {
		if errors.Is(err, export.ErrUnknownFormat) {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, r, err)
		return
	}

	if format == "" {
		format = "json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="todos.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// --- GET /healthz ---
func (h *TodoHandler) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.uc.List(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID は {id} を整数として読む。数値でなければ 422 を書いて false を返す。
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "id: value is not a valid integer")
		return 0, false
	}
	return id, true
}

// --- error mapper ---
func (h *TodoHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, todo_usecase.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Todo not found")

	case errors.Is(err, context.DeadlineExceeded):
		writeDetail(w, http.StatusGatewayTimeout, "request timeout")

	default:
		// Internal詳細はログ側にだけ残す
		rid, _ := requestid.FromContext(r.Context())
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", rid),
			zap.Error(err),
		)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}
