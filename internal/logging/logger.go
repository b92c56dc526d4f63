// Package logging writes JSON log lines tagged with a run ID, a correlation ID
// from the context, and the component and action that produced them.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
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

// ParseLevel maps a config value to a Level. Unknown names mean info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error", "fatal":
		return LevelError
	default:
		return LevelInfo
	}
}

// Fields are the structured key/values attached to an entry.
type Fields map[string]interface{}

// Entry is one JSON log line.
type Entry struct {
	Time          time.Time `json:"@timestamp"`
	Level         string    `json:"level"`
	Message       string    `json:"message"`
	RunID         string    `json:"run_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Component     string    `json:"component,omitempty"`
	Action        string    `json:"action,omitempty"`
	DurationMs    *int64    `json:"duration_ms,omitempty"`
	Error         string    `json:"error,omitempty"`
	Fields        Fields    `json:"fields,omitempty"`
	Caller        string    `json:"caller,omitempty"`
}

type ctxKey struct{}

// WithCorrelationID returns a context carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// NewCorrelationID returns a random UUID string.
func NewCorrelationID() string {
	return uuid.New().String()
}

// GetCorrelationID returns the ID stored by WithCorrelationID, or "".
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Options configure a Logger.
type Options struct {
	Level      Level
	RunID      string
	BufferSize int

	// Console receives entries when non-nil. The driver passes stderr so that
	// stdout only carries the warehouse dump.
	Console io.Writer
	// FilePath appends entries to a file when non-empty.
	FilePath string
}

// Logger encodes entries on a background goroutine. Entries that do not fit in
// the buffer are written inline.
type Logger struct {
	level Level
	runID string

	mu    sync.Mutex
	sinks []io.Writer
	files []*os.File

	// sendMu guards queue against sends after Close.
	sendMu  sync.RWMutex
	closed  bool
	queue   chan Entry
	stopped chan struct{}
}

// NewLogger opens the configured sinks and starts the writer goroutine.
func NewLogger(opts Options) (*Logger, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1
	}
	l := &Logger{
		level:   opts.Level,
		runID:   opts.RunID,
		queue:   make(chan Entry, opts.BufferSize),
		stopped: make(chan struct{}),
	}
	if opts.Console != nil {
		l.sinks = append(l.sinks, opts.Console)
	}
	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.FilePath, err)
		}
		l.sinks = append(l.sinks, f)
		l.files = append(l.files, f)
	}

	go l.drain()
	return l, nil
}

func (l *Logger) drain() {
	defer close(l.stopped)
	for entry := range l.queue {
		l.write(entry)
	}
}

func (l *Logger) write(entry Entry) {
	line, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: cannot encode entry %q: %v\n", entry.Message, err)
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sink := range l.sinks {
		_, _ = sink.Write(line)
	}
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

// Log records one entry. err and duration are optional.
func (l *Logger) Log(ctx context.Context, level Level, component, action, message string, err error, duration *time.Duration, fields Fields) {
	l.log(ctx, 3, level, component, action, message, err, duration, fields)
}

// log skips callerSkip frames, counted from caller itself, to find the call site.
func (l *Logger) log(ctx context.Context, callerSkip int, level Level, component, action, message string, err error, duration *time.Duration, fields Fields) {
	if !l.Enabled(level) {
		return
	}
	entry := Entry{
		Time:          time.Now().UTC(),
		Level:         level.String(),
		Message:       message,
		RunID:         l.runID,
		CorrelationID: GetCorrelationID(ctx),
		Component:     component,
		Action:        action,
		Fields:        fields,
		Caller:        caller(callerSkip),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if duration != nil {
		ms := duration.Milliseconds()
		entry.DurationMs = &ms
	}

	l.sendMu.RLock()
	defer l.sendMu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- entry:
	default:
		l.write(entry)
	}
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	if i := strings.LastIndex(file, "/"); i >= 0 {
		if j := strings.LastIndex(file[:i], "/"); j >= 0 {
			file = file[j+1:]
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// Close flushes queued entries and closes log files. It is safe to call more
// than once; entries logged after Close are lost.
func (l *Logger) Close() {
	l.sendMu.Lock()
	if l.closed {
		l.sendMu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.sendMu.Unlock()

	<-l.stopped

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.files {
		f.Close()
	}
	l.sinks = nil
}

var (
	globalMu sync.RWMutex
	global   *Logger
)

// SetGlobalLogger installs the logger used by the package-level helpers. A nil
// logger silences them.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// GetGlobalLogger returns the installed logger, possibly nil.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

func emit(ctx context.Context, level Level, component, action, message string, err error, fields []Fields) {
	l := GetGlobalLogger()
	if l == nil {
		return
	}
	var f Fields
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(ctx, 4, level, component, action, message, err, nil, f)
}

func Debug(ctx context.Context, component, action, message string, fields ...Fields) {
	emit(ctx, LevelDebug, component, action, message, nil, fields)
}

func Info(ctx context.Context, component, action, message string, fields ...Fields) {
	emit(ctx, LevelInfo, component, action, message, nil, fields)
}

func Warn(ctx context.Context, component, action, message string, fields ...Fields) {
	emit(ctx, LevelWarn, component, action, message, nil, fields)
}

func Error(ctx context.Context, component, action, message string, err error, fields ...Fields) {
	emit(ctx, LevelError, component, action, message, err, fields)
}

// Timed logs message with the elapsed time since start.
func Timed(ctx context.Context, level Level, component, action, message string, start time.Time, fields Fields) {
	if l := GetGlobalLogger(); l != nil {
		d := time.Since(start)
		l.log(ctx, 3, level, component, action, message, nil, &d, fields)
	}
}
