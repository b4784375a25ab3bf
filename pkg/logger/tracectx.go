package logger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

// WithRequestID кладёт request id в ctx; он попадает в каждую *Context запись.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID — request id из ctx, если он был выставлен.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	return v, ok && v != ""
}

func AttrsFromCtx(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if id, ok := RequestID(ctx); ok {
		attrs = append(attrs, slog.String("request_id", id))
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}

// ForRoom — логгер с room_id и атрибутами из ctx.
func ForRoom(ctx context.Context, roomID string) *slog.Logger {
	attrs := AttrsFromCtx(ctx)
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("room_id", roomID))
	for _, a := range attrs {
		args = append(args, a)
	}
	return slog.Default().With(args...)
}
