package logger

import (
	"context"
	"log/slog"
)

// slogHandler adapts Logger to slog.Handler so that components built on
// log/slog (event bus, scheduler) write through the same JSON output.
type slogHandler struct {
	l     *Logger
	group string
}

// Slog returns a *slog.Logger backed by l.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(&slogHandler{l: l})
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return fromSlogLevel(level) >= h.l.level
}

func (h *slogHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]Field, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.field(a))
		return true
	})
	// slog.Logger.Info -> slog.Logger.log -> Handle -> emit
	h.l.withSkip(2).emit(fromSlogLevel(r.Level), r.Message, fields)
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]Field, 0, len(attrs))
	for _, a := range attrs {
		fields = append(fields, h.field(a))
	}
	return &slogHandler{l: h.l.With(fields...), group: h.group}
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &slogHandler{l: h.l, group: group}
}

func (h *slogHandler) field(a slog.Attr) Field {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	v := a.Value.Resolve()
	if err, ok := v.Any().(error); ok {
		return Field{Key: key, Value: err.Error()}
	}
	return Field{Key: key, Value: v.Any()}
}

func (l *Logger) withSkip(extra int) *Logger {
	c := l.derive()
	c.skip += extra
	return c
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}
