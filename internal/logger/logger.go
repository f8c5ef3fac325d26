package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) color() string {
	switch l {
	case DEBUG:
		return "\033[36m" // cyan
	case INFO:
		return "\033[32m" // green
	case WARNING:
		return "\033[33m" // yellow
	case ERROR:
		return "\033[31m" // red
	case FATAL:
		return "\033[35m" // magenta
	default:
		return ""
	}
}

const colorReset = "\033[0m"

// Logger is a leveled logger with optional ANSI colors.
type Logger struct {
	logger    *log.Logger
	level     LogLevel
	useColors bool
	mu        sync.RWMutex
}

// New creates a Logger writing to output with the given prefix and minimum
// level.
func New(output io.Writer, prefix string, level LogLevel, useColors bool) *Logger {
	return &Logger{
		logger:    log.New(output, prefix, log.LstdFlags),
		level:     level,
		useColors: useColors,
	}
}

// NewDefault creates a logger with default settings (INFO level, colors on).
func NewDefault(prefix string) *Logger {
	return New(os.Stdout, prefix, INFO, true)
}

// SetLevel changes the minimum log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// ParseLogLevel converts a string to a LogLevel, defaulting to INFO.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (l *Logger) logf(level LogLevel, format string, v ...interface{}) {
	l.mu.RLock()
	minLevel := l.level
	l.mu.RUnlock()

	if level < minLevel {
		return
	}

	message := fmt.Sprintf(format, v...)

	var logLine string
	if l.useColors {
		logLine = fmt.Sprintf("%s[%s]%s %s", level.color(), level, colorReset, message)
	} else {
		logLine = fmt.Sprintf("[%s] %s", level, message)
	}

	l.logger.Output(3, logLine)

	if level == FATAL {
		os.Exit(1)
	}
}

// Debug logs a message at DEBUG level.
func (l *Logger) Debug(v ...interface{}) {
	l.logf(DEBUG, "%s", fmt.Sprint(v...))
}

// Debugf logs a formatted message at DEBUG level.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logf(DEBUG, format, v...)
}

// Info logs a message at INFO level.
func (l *Logger) Info(v ...interface{}) {
	l.logf(INFO, "%s", fmt.Sprint(v...))
}

// Infof logs a formatted message at INFO level.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.logf(INFO, format, v...)
}

// Warning logs a message at WARNING level.
func (l *Logger) Warning(v ...interface{}) {
	l.logf(WARNING, "%s", fmt.Sprint(v...))
}

// Warningf logs a formatted message at WARNING level.
func (l *Logger) Warningf(format string, v ...interface{}) {
	l.logf(WARNING, format, v...)
}

// Error logs a message at ERROR level.
func (l *Logger) Error(v ...interface{}) {
	l.logf(ERROR, "%s", fmt.Sprint(v...))
}

// Errorf logs a formatted message at ERROR level.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logf(ERROR, format, v...)
}

// Fatal logs a message at FATAL level and exits.
func (l *Logger) Fatal(v ...interface{}) {
	l.logf(FATAL, "%s", fmt.Sprint(v...))
}

// Fatalf logs a formatted message at FATAL level and exits.
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logf(FATAL, format, v...)
}

// Printf provides compatibility with the standard logger (INFO level).
func (l *Logger) Printf(format string, v ...interface{}) {
	l.logf(INFO, format, v...)
}
