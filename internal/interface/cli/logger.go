package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/llmhelper/internal/app"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var levelNames = [...]string{
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
}

func (l LogLevel) String() string {
	if l >= LogLevelDebug && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ParseLogLevel accepts debug, info, warn (or warning) and error in any case
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	}
	return LogLevelWarn, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", level)
}

// LogLevelFromString is ParseLogLevel with unknown levels read as warn
func LogLevelFromString(level string) LogLevel {
	l, _ := ParseLogLevel(level)
	return l
}

// Logger writes levelled diagnostics to stderr. Program output (prompts,
// completions, summaries) goes through the console presenter instead.
type Logger struct {
	mu       sync.Mutex
	minLevel LogLevel
	output   io.Writer
	clock    func() time.Time // nil disables timestamps
}

// LoggerOption configures a Logger
type LoggerOption func(*Logger)

// WithTimestamps prefixes every line with the wall-clock time
func WithTimestamps(clock func() time.Time) LoggerOption {
	return func(l *Logger) {
		l.clock = clock
	}
}

// NewLogger creates a logger dropping messages below minLevel
func NewLogger(minLevel LogLevel, output io.Writer, opts ...LoggerOption) *Logger {
	l := &Logger{minLevel: minLevel, output: output}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minLevel
}

func (l *Logger) SetOutput(output io.Writer) {
	l.mu.Lock()
	l.output = output
	l.mu.Unlock()
}

// Enabled reports whether messages of level are written
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.GetLevel()
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(LogLevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(LogLevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LogLevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(LogLevelError, format, args...) }

// log holds the lock while writing so lines from concurrent callers never
// interleave
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.minLevel || l.output == nil {
		return
	}
	var b strings.Builder
	if l.clock != nil {
		b.WriteString(l.clock().Format("15:04:05.000 "))
	}
	b.WriteString(level.String())
	b.WriteString(": ")
	fmt.Fprintf(&b, format, args...)
	b.WriteByte('\n')
	io.WriteString(l.output, b.String())
}

var globalLogger *Logger

var _ app.Logger = (*Logger)(nil)

// InitializeLoggers routes the app and infra layer logging through logger
func InitializeLoggers(logger *Logger) {
	app.SetLogger(logger)
}

// InitGlobalLogger replaces the global logger and hands it to the app layer.
// Debug level adds timestamps.
func InitGlobalLogger(level string) *Logger {
	if level == "" {
		level = "warn"
	}
	lvl := LogLevelFromString(level)
	var opts []LoggerOption
	if lvl == LogLevelDebug {
		opts = append(opts, WithTimestamps(time.Now))
	}
	globalLogger = NewLogger(lvl, os.Stderr, opts...)
	InitializeLoggers(globalLogger)
	return globalLogger
}

// GetLogger returns the global logger, creating a warn level one on first use
func GetLogger() *Logger {
	if globalLogger == nil {
		InitGlobalLogger("warn")
	}
	return globalLogger
}
