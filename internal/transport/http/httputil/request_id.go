package httputil

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/cwrk-planet/live-room-service/pkg/logger"
)

const (
	HeaderRequestID = "X-Request-ID"
	maxRequestIDLen = 64
)

// MiddlewareRequestID принимает X-Request-ID клиента, если он разумный, иначе генерирует свой.
// id кладётся в ctx через logger.WithRequestID и попадает во все *Context логи.
func MiddlewareRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if !validRequestID(reqID) {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)

		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), reqID)))
	})
}

func FromContext(ctx context.Context) (string, bool) {
	return logger.RequestID(ctx)
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}
