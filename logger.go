package cablekit

import (
	"fmt"
	"io"
	"time"
)

// Logger is the structured-field logging surface every component in this
// module and in cable/ takes a dependency on, instead of the stdlib log
// package directly. logger_zap.go adapts a real zap logger to it for
// production use; testLogger below is the plain io.Writer implementation
// every test in this repo constructs via NewTestLogger.
type Logger interface {
	WithField(key string, value any) Logger
	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)
}

// testLogger implements Logger over an io.Writer, with no leveled filtering
// and no external dependency: the point is deterministic, dependency-free
// output in tests, not production observability (see logger_zap.go for that).
type testLogger struct {
	writer io.Writer
	fields map[string]any
}

// NewTestLogger creates a Logger that writes timestamped, field-annotated
// lines to writer.
func NewTestLogger(writer io.Writer) Logger {
	return &testLogger{
		writer: writer,
		fields: make(map[string]any),
	}
}

func (l *testLogger) WithField(key string, value any) Logger {
	newLogger := &testLogger{
		writer: l.writer,
		fields: make(map[string]any),
	}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	newLogger.fields[key] = value
	return newLogger
}

func (l *testLogger) formatFields() string {
	if len(l.fields) == 0 {
		return ""
	}

	result := " ["
	first := true
	for k, v := range l.fields {
		if !first {
			result += ", "
		}
		result += fmt.Sprintf("%s=%v", k, v)
		first = false
	}
	result += "]"
	return result
}

func (l *testLogger) log(level, msg string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fields := l.formatFields()
	fmt.Fprintf(l.writer, "[%s] %s%s: %s\n", timestamp, level, fields, msg)
}

func (l *testLogger) Debug(args ...any) {
	l.log("DEBUG", fmt.Sprint(args...))
}

func (l *testLogger) Debugf(format string, args ...any) {
	l.log("DEBUG", fmt.Sprintf(format, args...))
}

func (l *testLogger) Debugln(args ...any) {
	l.log("DEBUG", fmt.Sprintln(args...))
}

func (l *testLogger) Info(args ...any) {
	l.log("INFO", fmt.Sprint(args...))
}

func (l *testLogger) Infof(format string, args ...any) {
	l.log("INFO", fmt.Sprintf(format, args...))
}

func (l *testLogger) Infoln(args ...any) {
	l.log("INFO", fmt.Sprintln(args...))
}

func (l *testLogger) Warn(args ...any) {
	l.log("WARN", fmt.Sprint(args...))
}

func (l *testLogger) Warnf(format string, args ...any) {
	l.log("WARN", fmt.Sprintf(format, args...))
}

func (l *testLogger) Warnln(args ...any) {
	l.log("WARN", fmt.Sprintln(args...))
}

func (l *testLogger) Error(args ...any) {
	l.log("ERROR", fmt.Sprint(args...))
}

func (l *testLogger) Errorf(format string, args ...any) {
	l.log("ERROR", fmt.Sprintf(format, args...))
}

func (l *testLogger) Errorln(args ...any) {
	l.log("ERROR", fmt.Sprintln(args...))
}
