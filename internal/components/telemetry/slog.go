package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// InitSlog installs a text handler writing to `out` as the default slog logger.
func InitSlog(out io.Writer, level slog.Level) {
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps "debug", "info", "warn" and "error" onto slog levels, anything
// else is treated as info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SlogAPI reports through the default slog logger. Error params are logged under
// "err", everything else as params.<n>.
type SlogAPI struct{}

func slogAttrs(head []any, params []any) []any {
	attrs := head
	for i, p := range params {
		if err, ok := p.(error); ok {
			attrs = append(attrs, "err", err.Error())
			continue
		}
		attrs = append(attrs, fmt.Sprintf("params.%d", i), p)
	}
	return attrs
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", slogAttrs([]any{"id", id}, params)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", slogAttrs([]any{"id", id}, params)...)
}

func (SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, slogAttrs(nil, params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}
