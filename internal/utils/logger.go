// internal/utils/logger.go
package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// LogLevel mirrors the slog levels the app uses
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARNING:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is a small facade over a fan-out slog logger. The terminal handler
// is always present; a JSON file handler and the systemd journal are added
// by AttachFile and EnableJournal.
type Logger struct {
	mu      sync.Mutex
	level   *slog.LevelVar
	stdout  io.Writer
	file    *os.File
	journal slog.Handler
	slog    *slog.Logger
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the process logger
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = NewLogger(os.Stdout)
	})
	return globalLogger
}

// NewLogger builds a logger writing text records to w
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		level:  new(slog.LevelVar),
		stdout: w,
	}
	l.level.Set(slog.LevelInfo)
	l.rebuild()
	return l
}

// AttachFile adds an append-only JSON handler writing to logFile
func (l *Logger) AttachFile(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.rebuildLocked()
	return nil
}

// EnableJournal adds the systemd journal as a sink.
func (l *Logger) EnableJournal() error {
	handler, err := slogjournal.NewHandler(&slogjournal.Options{
		Level: l.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			a.Key = toJournalKey(a.Key)
			return a
		},
	})
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.journal = handler
	l.rebuildLocked()
	return nil
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.rebuildLocked()
	return err
}

// SetLogLevel changes the threshold for every sink at once
func (l *Logger) SetLogLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

func (l *Logger) rebuild() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rebuildLocked()
}

func (l *Logger) rebuildLocked() {
	opts := &slog.HandlerOptions{Level: l.level}
	handlers := []slog.Handler{slog.NewTextHandler(l.stdout, opts)}
	if l.file != nil {
		handlers = append(handlers, slog.NewJSONHandler(l.file, opts))
	}
	if l.journal != nil {
		handlers = append(handlers, l.journal)
	}
	l.slog = slog.New(slogmulti.Fanout(handlers...))
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	l.mu.Lock()
	logger := l.slog
	l.mu.Unlock()

	sl := level.slogLevel()
	if !logger.Enabled(context.Background(), sl) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip Callers, log and the public method
	record := slog.NewRecord(time.Now(), sl, message, pcs[0])
	for key, value := range fields {
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		record.AddAttrs(slog.Any(key, value))
	}
	_ = logger.Handler().Handle(context.Background(), record)
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}

// Level methods take a message and optional structured fields.

func (l *Logger) Debug(msg string, fields map[string]interface{}) { l.log(DEBUG, msg, fields) }
func (l *Logger) Info(msg string, fields map[string]interface{}) { l.log(INFO, msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]interface{}) { l.log(WARNING, msg, fields) }
func (l *Logger) Error(msg string, fields map[string]interface{}) { l.log(ERROR, msg, fields) }

// Debugf is a printf-style Debug without fields
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(DEBUG, fmt.Sprintf(format, args...), nil)
}
