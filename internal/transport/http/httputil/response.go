package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type envelope map[string]any

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

// OK — «успешный» ответ с обёрткой.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope{"data": data})
}

// Error — унифицированная ошибка (message + meta).
func Error(ctx context.Context, w http.ResponseWriter, status int, msg string, meta map[string]any) {
	e := envelope{"message": msg}
	if len(meta) > 0 {
		e["meta"] = meta
	}
	if reqID, ok := FromContext(ctx); ok {
		e["request_id"] = reqID
	}
	JSON(w, status, envelope{"error": e})
}

// Fail пишет ошибку со статусом из StatusFor. 5xx логируются, тексты
// внутренних ошибок клиенту не отдаются.
func Fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, op+":", slog.Any("err", err))
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	Error(ctx, w, status, msg, map[string]any{"code": Code(err)})
}
