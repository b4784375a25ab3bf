package logger

import (
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// ensureInstanceID: явное значение, затем POD_NAME (k8s), затем hostname со случайным суффиксом.
func ensureInstanceID(v string) string {
	if v != "" {
		return v
	}
	if pod := os.Getenv("POD_NAME"); pod != "" {
		return pod
	}

	hn, err := os.Hostname()
	if err != nil || hn == "" {
		hn = "unknown"
	}
	return hn + "-" + uuid.NewString()[:8]
}

// ensureVersion берёт версию модуля из build info, если она не задана в конфиге.
func ensureVersion(v string) string {
	if v != "" {
		return v
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}

func commonAttr(cfg Config) []slog.Attr {
	return []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
		slog.Time("started_at", time.Now()),
	}
}
