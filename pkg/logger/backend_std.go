package logger

import (
	"context"
	"log/slog"
)

func newStdHandler(cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     cfg.level(),
		AddSource: cfg.AddSource,
	}
	if cfg.Env == EnvDev {
		return ctxHandler{slog.NewTextHandler(cfg.Output, opts)}
	}
	return ctxHandler{slog.NewJSONHandler(cfg.Output, opts)}
}

// ctxHandler добавляет request/trace атрибуты, как AttrFromContext у zap-бэкенда.
type ctxHandler struct {
	slog.Handler
}

func (h ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := AttrsFromCtx(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h ctxHandler) WithGroup(name string) slog.Handler {
	return ctxHandler{h.Handler.WithGroup(name)}
}
