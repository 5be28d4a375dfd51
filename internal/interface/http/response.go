package httpadapter

import (
	"encoding/json"
	"net/http"
)

// messageResponse は GET / と DELETE の応答
type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse はエラー時の応答。キー名は既存フロントエンドが読む "detail" に合わせている。
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorResponse{Detail: detail})
}
