// Package logging 构造 slog logger。日志一律写到 stderr，stdout 留给 report 输出。
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// FieldComponent 是组件名的统一字段。
const FieldComponent = "component"

// Options 描述 logger 的构造参数。
type Options struct {
	Level  string // debug / info / warn / error
	Format string // console / json
	Writer io.Writer
}

// New 按 Options 构造 logger；Writer 为空时写 stderr。
func New(opts Options) (*slog.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "", "console", "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewNop 返回丢弃一切输出的 logger（测试与未配置日志时使用）。
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger 给 logger 附加组件名；logger 为 nil 时使用 NewNop。
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}

// Error 把 err 包装为日志字段；err 为 nil 时输出空串。
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// NoopHandler 丢弃所有日志。
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
