package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/cwrk-planet/live-room-service/pkg/logger"
)

const mdRequestID = "x-request-id"

// UnaryServerInterceptor: request id, recovery, логирование и guard-таймаут для вызовов без deadline.
// guard должен перекрывать самый долгий вызов (ответ LLM, распознавание).
func UnaryServerInterceptor(guard time.Duration) grpc.UnaryServerInterceptor {
	if guard <= 0 {
		guard = 10 * time.Second
	}
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		ctx = withRequestID(ctx)
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, guard)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "grpc unary panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			logCall(ctx, "grpc unary", info.FullMethod, start, err)
		}()

		return handler(ctx, req)
	}
}

func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()
		ctx := withRequestID(ss.Context())

		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "grpc stream panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			logCall(ctx, "grpc stream", info.FullMethod, start, err)
		}()

		return handler(srv, ss)
	}
}

// withRequestID берёт x-request-id из metadata или генерирует новый
// и отдаёт его клиенту в header.
func withRequestID(ctx context.Context) context.Context {
	var id string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(mdRequestID); len(v) > 0 && len(v[0]) <= 64 {
			id = v[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(mdRequestID, id))
	return logger.WithRequestID(ctx, id)
}

func logCall(ctx context.Context, msg, method string, start time.Time, err error) {
	code := status.Code(err)
	level := slog.LevelInfo
	switch code {
	case codes.Internal, codes.Unknown, codes.Unavailable, codes.DeadlineExceeded:
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, msg,
		"method", method,
		"code", code.String(),
		"dur_ms", time.Since(start).Milliseconds(),
		"err", errString(err))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
