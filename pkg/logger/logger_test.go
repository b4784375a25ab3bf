package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/cwrk-planet/live-room-service/pkg/logger"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestDetectEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if got := logger.DetectEnv(); got != logger.EnvDev {
		t.Fatalf("default should be dev, got %q", got)
	}

	t.Setenv("APP_ENV", "staging")
	if got := logger.DetectEnv(); got != logger.EnvStage {
		t.Fatalf("expected stage, got %q", got)
	}

	t.Setenv("APP_ENV", "Production")
	if got := logger.DetectEnv(); got != logger.EnvProd {
		t.Fatalf("expected prod, got %q", got)
	}
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service: "demo",
		Version: "v0.0.1",
		Env:     logger.EnvDev,
		Backend: logger.BackendStd,
		Level:   slog.LevelDebug,
		Output:  &buf,
	})
	slog.Info("Hello world")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected text output in dev/std, got JSON: %s", out)
	}
	for _, want := range []string{"Hello world", "service=demo", "env=dev"} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q missing: %s", want, out)
		}
	}
}

func TestInit_ProdZap_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service:          "demo",
		Version:          "1.2.3",
		Env:              logger.EnvProd,
		Backend:          logger.BackendZap,
		Level:            slog.LevelInfo,
		SampleInitial:    100000,
		SampleThereafter: 100000,
		Output:           &buf,
	})
	slog.Info("booted", slog.String("k", "v"))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected JSON line, got %s, err=%v", buf.String(), err)
	}
	if m["msg"] != "booted" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
	if m["service"] != "demo" || m["env"] != "prod" || m["version"] != "1.2.3" {
		t.Fatalf("attrs missing: service=%v env=%v version=%v", m["service"], m["env"], m["version"])
	}
	if m["level"] != "INFO" {
		t.Fatalf("level mismatch: %v", m["level"])
	}
	if m["k"] != "v" {
		t.Fatalf("custom field missing: %v", m["k"])
	}
}

func TestForRoom_CarriesRoomAndTrace(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service: "demo",
		Env:     logger.EnvStage,
		Backend: logger.BackendStd,
		Output:  &buf,
	})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.ForRoom(ctx, "r1").Info("advanced")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected JSON in stage/std, got %s, err=%v", buf.String(), err)
	}
	if m["room_id"] != "r1" {
		t.Fatalf("room_id missing: %v", m)
	}
	if m["trace_id"] == nil || m["span_id"] == nil {
		t.Fatalf("trace_id/span_id missing in log: %v", m)
	}
}

func TestAttrsFromCtx_NoSpan(t *testing.T) {
	if attrs := logger.AttrsFromCtx(context.Background()); attrs != nil {
		t.Fatalf("expected no attrs without span, got %v", attrs)
	}
}

func TestStdHandler_RequestIDFromCtx(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service: "demo",
		Env:     logger.EnvStage,
		Backend: logger.BackendStd,
		Output:  &buf,
	})

	ctx := logger.WithRequestID(context.Background(), "req-42")
	slog.InfoContext(ctx, "handled")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected JSON line, got %s, err=%v", buf.String(), err)
	}
	if m["request_id"] != "req-42" {
		t.Fatalf("request_id missing: %v", m)
	}
	if id, ok := logger.RequestID(ctx); !ok || id != "req-42" {
		t.Fatalf("RequestID=%q,%v", id, ok)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":       slog.LevelInfo,
		"debug":  slog.LevelDebug,
		"WARN":   slog.LevelWarn,
		"error":  slog.LevelError,
		"info+2": slog.LevelInfo + 2,
	}
	for in, want := range cases {
		got, err := logger.ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := logger.ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestInit_ZapDoesNotSampleWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Env:              logger.EnvProd,
		Backend:          logger.BackendZap,
		SampleInitial:    1,
		SampleThereafter: 1000,
		Output:           &buf,
	})
	for i := 0; i < 5; i++ {
		slog.Info("chat burst")
		slog.Warn("llm down")
	}

	out := buf.String()
	if n := strings.Count(out, `"chat burst"`); n != 1 {
		t.Fatalf("info lines=%d, want 1 after sampling: %s", n, out)
	}
	if n := strings.Count(out, `"llm down"`); n != 5 {
		t.Fatalf("warn lines=%d, want 5: %s", n, out)
	}
}
