package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level%d", int(l))
	}
}

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Options configures a file logger.
type Options struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Level      Level
	JSON       bool
}

// Logger writes levelled lines to a rotating log file. A nil *Logger
// discards everything.
type Logger struct {
	mu       sync.Mutex
	logger   *log.Logger
	closer   io.Closer
	level    Level
	jsonMode bool
}

// New creates a logger writing to opts.Filename through lumberjack. An
// empty filename yields a logger that discards output.
func New(opts Options) *Logger {
	if opts.Filename == "" {
		return Discard()
	}
	logFile := &lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    opts.MaxSizeMB, // megabytes
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays, // days
		Compress:   opts.Compress,
	}
	l := NewWithWriter(logFile, opts.Level, opts.JSON)
	l.closer = logFile
	return l
}

// NewWithWriter creates a logger over an arbitrary writer.
func NewWithWriter(w io.Writer, level Level, jsonMode bool) *Logger {
	return &Logger{
		logger:   log.New(w, "", log.LstdFlags),
		level:    level,
		jsonMode: jsonMode,
	}
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return NewWithWriter(io.Discard, LevelError+1, false)
}

// Close closes the underlying log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	message := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		_ = json.NewEncoder(l.logger.Writer()).Encode(map[string]any{
			"time":  time.Now().Format(time.RFC3339Nano),
			"level": level.String(),
			"msg":   message,
		})
		return
	}
	l.logger.Printf("[%s] %s", strings.ToUpper(level.String()), message)
}

// Debugf logs debug information.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

// Infof logs informational messages.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

// Warnf logs warnings.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

// Errorf logs errors.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}
