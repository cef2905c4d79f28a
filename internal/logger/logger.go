package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the logging level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Config controls logger output.
type Config struct {
	Enabled bool
	Level   string
	File    string
	Console bool
}

type sink struct {
	level  Level
	logger *log.Logger
	file   *os.File
}

var (
	mu     sync.RWMutex
	global *sink
)

// Init replaces the process logger. A disabled config silences all output.
func Init(cfg Config) error {
	if !cfg.Enabled {
		swap(nil)
		return nil
	}

	var writers []io.Writer
	var file *os.File
	if cfg.File != "" {
		dir := filepath.Dir(cfg.File)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}
	if cfg.Console || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	swap(&sink{
		level:  ParseLevel(cfg.Level),
		logger: log.New(io.MultiWriter(writers...), "", 0),
		file:   file,
	})
	return nil
}

// SetOutput sends log lines at or above level to w.
func SetOutput(w io.Writer, level Level) {
	swap(&sink{level: level, logger: log.New(w, "", 0)})
}

// Close releases the log file, if any.
func Close() error {
	return swap(nil)
}

func swap(next *sink) error {
	mu.Lock()
	prev := global
	global = next
	mu.Unlock()
	if prev != nil && prev.file != nil {
		return prev.file.Close()
	}
	return nil
}

// ParseLevel maps a level name to a Level, defaulting to Info.
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func logf(level Level, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil || global.level > level {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	global.logger.Printf("[%s] [%s] %s", ts, level, fmt.Sprintf(format, args...))
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { logf(Debug, format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { logf(Info, format, args...) }

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) { logf(Warn, format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { logf(Error, format, args...) }
