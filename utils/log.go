package utils

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
)

func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch s {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "critical":
		return CRITICAL
	default:
		return INFO
	}
}

type Logger struct {
	mu         sync.Mutex
	minLevel   LogLevel
	sink       *lumberjack.Logger
	alsoStdout bool
}

// NewFileLogger creates a leveled logger writing to a size-rotated file at
// filePath, optionally teeing every line to stdout.
func NewFileLogger(filePath string, minLevel LogLevel, alsoStdout bool) *Logger {
	return &Logger{
		minLevel: minLevel,
		sink: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
		},
		alsoStdout: alsoStdout,
	}
}

// NewDiscardLogger returns a logger that drops every line.
func NewDiscardLogger() *Logger {
	return &Logger{minLevel: CRITICAL + 1}
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

func (l *Logger) SetMinLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minLevel {
		return
	}

	ts := time.Now().Format(time.RFC3339Nano)
	line := fmt.Sprintf("%s [%s] %s\n", ts, level.String(), fmt.Sprintf(msg, args...))

	if l.sink != nil {
		_, _ = l.sink.Write([]byte(line))
	}
	if l.alsoStdout {
		_, _ = os.Stdout.WriteString(line)
	}
}

func (l *Logger) Trace(msg string, args ...any)    { l.log(TRACE, msg, args...) }
func (l *Logger) Debug(msg string, args ...any)    { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)     { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)     { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any)    { l.log(ERROR, msg, args...) }
func (l *Logger) Critical(msg string, args ...any) { l.log(CRITICAL, msg, args...) }
