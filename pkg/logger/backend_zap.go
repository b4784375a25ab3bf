package logger

import (
	"context"
	"log/slog"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newZapHandler(cfg Config) slog.Handler {
	lvl := cfg.level()

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if cfg.AddSource {
		encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	}

	enc := zapcore.NewJSONEncoder(encCfg)
	out := zapcore.AddSync(cfg.Output)
	minLvl := toZapLevel(lvl)

	// Sampling только ниже Warn: всплески чата в популярной комнате
	// не должны съедать предупреждения о сбоях LLM/ASR.
	initial := cfg.SampleInitial
	if initial <= 0 {
		initial = 100
	}
	thereafter := cfg.SampleThereafter
	if thereafter <= 0 {
		thereafter = 10
	}
	chatty := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= minLvl && l < zapcore.WarnLevel })
	severe := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= minLvl && l >= zapcore.WarnLevel })
	core := zapcore.NewTee(
		zapcore.NewSamplerWithOptions(zapcore.NewCore(enc, out, chatty), time.Second, initial, thereafter),
		zapcore.NewCore(enc.Clone(), out, severe),
	)

	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return slogzap.Option{
		Level:           lvl,
		Logger:          z,
		AttrFromContext: []func(ctx context.Context) []slog.Attr{AttrsFromCtx},
	}.NewZapHandler()
}

func toZapLevel(lvl slog.Level) zapcore.Level {
	switch {
	case lvl <= slog.LevelDebug:
		return zapcore.DebugLevel
	case lvl <= slog.LevelInfo:
		return zapcore.InfoLevel
	case lvl <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
