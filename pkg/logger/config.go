package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

type Backend string

const (
	BackendStd Backend = "std" // text handler
	BackendZap Backend = "zap" // JSON через slog-zap
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // по умолчанию: std в dev, zap в stage/prod
	Debug   bool

	// Zap sampling: первые SampleInitial записей в секунду, затем каждая SampleThereafter
	SampleInitial    int
	SampleThereafter int

	AddSource bool

	// Output — куда писать; nil означает os.Stdout
	Output io.Writer
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}

// instanceID: POD_NAME в k8s, иначе hostname с коротким суффиксом.
func instanceID(v string) string {
	if v != "" {
		return v
	}
	if pod := os.Getenv("POD_NAME"); pod != "" {
		return pod
	}
	hn, _ := os.Hostname()
	return hn + "-" + uuid.NewString()[:8]
}

func (c Config) attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("service", c.Service),
		slog.String("env", string(c.Env)),
		slog.String("version", c.Version),
		slog.String("instance_id", c.InstanceID),
		slog.Int("pid", os.Getpid()),
		slog.Time("started_at", time.Now()),
	}
}
