package logger

import (
	"log/slog"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Ключ времени один на оба бэкенда, чтобы сборщик логов не различал их.
const timeKey = "ts"

func newHandler(cfg Config) slog.Handler {
	if cfg.Backend == BackendZap {
		return zapHandler(cfg)
	}

	opts := &slog.HandlerOptions{Level: cfg.level(), AddSource: cfg.AddSource}
	if cfg.Env == EnvDev {
		return slog.NewTextHandler(cfg.Output, opts)
	}
	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey {
			a.Key = timeKey
		}
		return a
	}
	return slog.NewJSONHandler(cfg.Output, opts)
}

func zapHandler(cfg Config) slog.Handler {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = timeKey
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if cfg.AddSource {
		enc.EncodeCaller = zapcore.ShortCallerEncoder
	}

	initial, thereafter := cfg.SampleInitial, cfg.SampleThereafter
	if initial <= 0 {
		initial = 100
	}
	if thereafter <= 0 {
		thereafter = 10
	}
	core := zapcore.NewSamplerWithOptions(
		zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(cfg.Output), zapLevel(cfg.level())),
		time.Second, initial, thereafter,
	)

	return slogzap.Option{
		Level:  cfg.level(),
		Logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
	}.NewZapHandler()
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l < slog.LevelInfo:
		return zapcore.DebugLevel
	case l < slog.LevelWarn:
		return zapcore.InfoLevel
	case l < slog.LevelError:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}
