package httputil

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// maxLoggedBody — сколько байт тела запроса/ответа попадает в лог.
const maxLoggedBody = 2 << 10

// Логирует метод, путь, статус, длительность, JSON-тела (обрезанные) и X-Request-ID.
func MiddlewareLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var reqBody string
		if isJSON(r.Header.Get("Content-Type")) && r.Body != nil {
			var buf bytes.Buffer
			b, _ := io.ReadAll(io.TeeReader(r.Body, &buf))
			r.Body = io.NopCloser(&buf)
			reqBody = clip(b)
		}

		lrw := &logResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)

		reqID, _ := FromContext(r.Context())
		attrs := []any{
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.status,
			"bytes", lrw.bytes,
			"duration", time.Since(start).String(),
		}
		if reqBody != "" {
			attrs = append(attrs, "req_body", reqBody)
		}
		if lrw.body.Len() > 0 {
			attrs = append(attrs, "resp_body", clip(lrw.body.Bytes()))
		}
		if lrw.status >= http.StatusInternalServerError {
			slog.WarnContext(r.Context(), "http request", attrs...)
			return
		}
		slog.InfoContext(r.Context(), "http request", attrs...)
	})
}

func isJSON(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "json")
}

func clip(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "...(truncated)"
	}
	return string(b)
}

type logResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
}

func (w *logResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *logResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.body.Len() < maxLoggedBody && isJSON(w.Header().Get("Content-Type")) {
		w.body.Write(b)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n

	return n, err
}

// Hijack нужен для апгрейда websocket за этим middleware.
func (w *logResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("http.Hijacker is not supported")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *logResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
