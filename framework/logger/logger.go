// Package logger is the process-wide structured logger used by every
// framework package. It wraps log/slog with a runtime-adjustable level,
// a text or JSON handler, and a configurable output.
//
//	logger.Init(logger.Config{Level: "DEBUG", Format: "json"})
//	logger.Debug("component constructed", "type", "*shapes.Canvas")
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	format  = "text"
	output  io.Writer = os.Stderr
	file    *os.File // opened by Init, closed when replaced
	slogger *slog.Logger
)

func init() {
	level.Set(slog.LevelInfo)
	rebuild()
}

// rebuild swaps the handler for the current format and output (must hold mu).
func rebuild() {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		slogger = slog.New(slog.NewJSONHandler(output, opts))
		return
	}
	slogger = slog.New(slog.NewTextHandler(output, opts))
}

// Init applies cfg. Empty fields keep their current value. A log file
// opened by an earlier Init is closed once the new output is in place.
func Init(cfg Config) error {
	if cfg.Output != "" {
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			setOutput(os.Stdout, nil)
		case "stderr":
			setOutput(os.Stderr, nil)
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			setOutput(f, f)
		}
	}
	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	return nil
}

// InitWithWriter redirects output to w. Used by tests to capture log lines.
func InitWithWriter(w io.Writer, lvl, fmtName string) {
	setOutput(w, nil)
	SetLevel(lvl)
	SetFormat(fmtName)
}

// Close closes the log file opened by Init, if any, and falls back to
// stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file, output = nil, os.Stderr
	rebuild()
	return err
}

// setOutput swaps the writer and closes the previous log file.
func setOutput(w io.Writer, f *os.File) {
	mu.Lock()
	prev := file
	output, file = w, f
	rebuild()
	mu.Unlock()
	if prev != nil && prev != f {
		_ = prev.Close()
	}
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "INFO":
		level.Set(slog.LevelInfo)
	case "WARN", "WARNING":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	}
}

// SetFormat switches between "text" and "json". Unknown names are ignored.
func SetFormat(name string) {
	name = strings.ToLower(name)
	if name != "text" && name != "json" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	format = name
	rebuild()
}

// L returns the current *slog.Logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// With returns a child logger carrying args on every record.
func With(args ...any) *slog.Logger { return L().With(args...) }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }
