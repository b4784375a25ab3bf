package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.Mutex
	def *slog.Logger
)

// Init настраивает slog по конфигу и ставит его логгером по умолчанию.
func Init(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "live-room-service"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)
	cfg.Version = ensureVersion(cfg.Version)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	base := slog.New(h.WithAttrs(commonAttr(cfg)))

	mu.Lock()
	def = base
	mu.Unlock()
	slog.SetDefault(base)

	return base
}

func L() *slog.Logger {
	mu.Lock()
	l := def
	mu.Unlock()
	if l != nil {
		return l
	}
	return Init(Config{})
}
