// Package logger writes structured JSON log lines, one object per line.
//
// A Logger carries bound fields and is cheap to derive with With. Loggers
// derived from the same root share one writer and one lock, so concurrent
// components never interleave partial lines. Components built on log/slog
// get a bridge through Slog.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level is the severity of an entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// Anything else is info.
func ParseLevel(s string) Level {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		return LevelWarn
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i)
		}
	}
	return LevelInfo
}

// Field is one key/value pair of an entry.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field  { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Err stores the error text under "error"; a nil error is logged as null.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration stores d in its String form ("1.5s").
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.String()}
}

// Domain field helpers.
func MentorID(id string) Field      { return String("mentor_id", id) }
func MenteeID(id string) Field      { return String("mentee_id", id) }
func MentorshipID(id string) Field  { return String("mentorship_id", id) }
func UserID(id string) Field        { return String("user_id", id) }
func Status(s string) Field         { return String("status", s) }
func Score(score int) Field         { return Int("compatibility_score", score) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }

// RequestIDKey is the field that correlates entries of one HTTP request.
const RequestIDKey = "request_id"

// LogEntry is the JSON shape of one line.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Caller    string         `json:"caller,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

type sink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *sink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.out.Write(line)
}

// Logger is safe for concurrent use.
type Logger struct {
	sink      *sink
	level     Level
	fields    []Field
	addCaller bool
	skip      int
}

// Options configures New. A nil Output means stdout.
type Options struct {
	Output     io.Writer
	Level      Level
	AddCaller  bool
	CallerSkip int
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		sink:      &sink{out: out},
		level:     opts.Level,
		addCaller: opts.AddCaller,
		skip:      opts.CallerSkip,
	}
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default is the process-wide info-level stdout logger used when a context
// carries none.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(Options{Output: os.Stdout, Level: LevelInfo})
	})
	return defaultLogger
}

func (l *Logger) derive() *Logger {
	c := *l
	return &c
}

// With returns a child that adds fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	c := l.derive()
	c.fields = make([]Field, 0, len(l.fields)+len(fields))
	c.fields = append(c.fields, l.fields...)
	c.fields = append(c.fields, fields...)
	return c
}

func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String(RequestIDKey, requestID))
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

// emit is called exactly one frame below the public methods; callerDepth
// counts from here.
const callerDepth = 2

func (l *Logger) emit(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
	}
	if l.addCaller {
		if _, file, line, ok := runtime.Caller(callerDepth + l.skip); ok {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}
	if n := len(l.fields) + len(fields); n > 0 {
		entry.Fields = make(map[string]any, n)
		// call-site fields override bound ones
		for _, f := range l.fields {
			entry.Fields[f.Key] = f.Value
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"timestamp":%q,"level":%q,"message":%q,"fields":{"log_error":%q}}`,
			entry.Timestamp, entry.Level, msg, err.Error()))
	}
	l.sink.write(append(line, '\n'))
}

type ctxKey struct{}

func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithContext, or Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return Default()
}
