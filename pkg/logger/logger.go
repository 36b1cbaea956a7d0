// Package logger is the console logging layer for the twin: a small leveled
// core plus domain helpers (sections, tables, alert and cascade markers)
// shared by the CLI, the server and the drill scenarios.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level orders message severities.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel maps a configuration string to a level, defaulting to info.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// ANSI codes shared with the helpers and the spinner.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

var levelTags = map[Level]struct {
	tag   string
	color string
}{
	DebugLevel: {"DEBUG", colorGray},
	InfoLevel:  {"INFO ", colorGreen},
	WarnLevel:  {"WARN ", colorYellow},
	ErrorLevel: {"ERROR", colorRed},
}

// Logger is the leveled logger the engine, server and feed monitor write
// through. WithField and WithFields return derived loggers; the receiver is
// never mutated.
type Logger interface {
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

type logger struct {
	mu      sync.Mutex
	level   Level
	writer  io.Writer
	fields  map[string]interface{}
	noColor bool
}

var defaultLogger = newLogger()

func newLogger() *logger {
	return &logger{
		level:  InfoLevel,
		writer: os.Stdout,
		fields: make(map[string]interface{}),
	}
}

// New returns a logger writing to stdout at info level.
func New() Logger { return newLogger() }

// SetLevel adjusts the package-level logger's threshold.
func SetLevel(level Level) {
	defaultLogger.mu.Lock()
	defaultLogger.level = level
	defaultLogger.mu.Unlock()
}

// SetNoColor strips ANSI codes from package-level output.
func SetNoColor(noColor bool) {
	defaultLogger.mu.Lock()
	defaultLogger.noColor = noColor
	defaultLogger.mu.Unlock()
}

// Package-level shortcuts for the CLI and the helpers.
func Info(args ...interface{})                  { defaultLogger.Info(args...) }
func Infof(format string, args ...interface{})  { defaultLogger.Infof(format, args...) }
func Warn(args ...interface{})                  { defaultLogger.Warn(args...) }
func Warnf(format string, args ...interface{})  { defaultLogger.Warnf(format, args...) }
func Error(args ...interface{})                 { defaultLogger.Error(args...) }
func Errorf(format string, args ...interface{}) { defaultLogger.Errorf(format, args...) }

func (l *logger) write(level Level, message string) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	stamp := time.Now().Format("15:04:05")
	tag := levelTags[level]
	if l.noColor {
		b.WriteString(stamp + " " + tag.tag)
	} else {
		b.WriteString(colorGray + stamp + colorReset + " " + tag.color + tag.tag + colorReset)
	}

	if len(l.fields) > 0 {
		pairs := make([]string, 0, len(l.fields))
		for k, v := range l.fields {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
		}
		// Sorted so repeated lines diff cleanly.
		sort.Strings(pairs)
		joined := strings.Join(pairs, " ")
		if l.noColor {
			b.WriteString(" " + joined)
		} else {
			b.WriteString(" " + colorGray + joined + colorReset)
		}
	}

	b.WriteString(" " + message)
	_, _ = fmt.Fprintln(l.writer, b.String())
}

func (l *logger) Debugf(format string, args ...interface{}) { l.write(DebugLevel, fmt.Sprintf(format, args...)) }
func (l *logger) Info(args ...interface{})                  { l.write(InfoLevel, fmt.Sprint(args...)) }
func (l *logger) Infof(format string, args ...interface{})  { l.write(InfoLevel, fmt.Sprintf(format, args...)) }
func (l *logger) Warn(args ...interface{})                  { l.write(WarnLevel, fmt.Sprint(args...)) }
func (l *logger) Warnf(format string, args ...interface{})  { l.write(WarnLevel, fmt.Sprintf(format, args...)) }
func (l *logger) Error(args ...interface{})                 { l.write(ErrorLevel, fmt.Sprint(args...)) }
func (l *logger) Errorf(format string, args ...interface{}) { l.write(ErrorLevel, fmt.Sprintf(format, args...)) }

func (l *logger) WithField(key string, value interface{}) Logger {
	return l.derive(map[string]interface{}{key: value})
}

func (l *logger) WithFields(fields map[string]interface{}) Logger {
	return l.derive(fields)
}

func (l *logger) derive(extra map[string]interface{}) Logger {
	fields := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	return &logger{level: l.level, writer: l.writer, fields: fields, noColor: l.noColor}
}
