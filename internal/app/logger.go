package app

import (
	"fmt"
	"io"
	"os"
)

// Logger is the logging interface of the app and infra layers. The CLI
// installs its levelled logger with SetLogger at startup.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// stderrLogger is used until SetLogger is called. It drops debug and info
// output, matching the CLI's default warn level.
type stderrLogger struct {
	output io.Writer
}

func (l *stderrLogger) Debug(format string, args ...interface{}) {}

func (l *stderrLogger) Info(format string, args ...interface{}) {}

func (l *stderrLogger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "WARN: "+format+"\n", args...)
}

func (l *stderrLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "ERROR: "+format+"\n", args...)
}

var globalLogger Logger = &stderrLogger{output: os.Stderr}

// SetLogger sets the global logger for app layer
func SetLogger(logger Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// GetLogger returns the current logger
func GetLogger() Logger {
	return globalLogger
}
