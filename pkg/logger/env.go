package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

// ParseEnv нормализует значение из конфига или APP_ENV.
func ParseEnv(raw string) Env {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod", "pre-production":
		return EnvStage
	default:
		return EnvDev
	}
}

func DetectEnv() Env {
	return ParseEnv(os.Getenv("APP_ENV"))
}

// ParseLevel понимает debug|info|warn|error и смещения вида "info+2".
// Пустая строка — info.
func ParseLevel(raw string) (slog.Level, error) {
	var lvl slog.Level
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", raw, err)
	}
	return lvl, nil
}
