package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// consoleHandler writes bare messages, without timestamps or level prefixes
type consoleHandler struct {
	writer io.Writer
	debug  bool
	quiet  *atomic.Bool
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level == slog.LevelDebug {
		return h.debug
	}
	return true
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if h.quiet.Load() {
		return nil
	}
	_, err := fmt.Fprintln(h.writer, record.Message)
	return err
}

func (h *consoleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// newRotatingFile creates the rotating log file, sized from HISTPORT_LOG_* variables
func newRotatingFile(logFilePath string) *lumberjack.Logger {
	logger := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   false,
	}

	if v, err := strconv.Atoi(os.Getenv("HISTPORT_LOG_MAX_SIZE")); err == nil && v > 0 {
		logger.MaxSize = v
	}
	if v, err := strconv.Atoi(os.Getenv("HISTPORT_LOG_MAX_BACKUPS")); err == nil && v >= 0 {
		logger.MaxBackups = v
	}
	if v, err := strconv.Atoi(os.Getenv("HISTPORT_LOG_MAX_AGE")); err == nil && v > 0 {
		logger.MaxAge = v
	}
	return logger
}

// fanoutHandler sends each record to every handler that accepts its level
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: handlers}
}

// Splog is histport's logger: plain messages on the console and, when a
// log file is configured, timestamped records of every level in a
// rotating file.
type Splog struct {
	logger  *slog.Logger
	writer  io.Writer
	logFile io.WriteCloser
	quiet   atomic.Bool
}

// NewSplog creates a console-only logger. Debug output is enabled when
// HISTPORT_DEBUG or DEBUG is set.
func NewSplog() *Splog {
	splog, _ := NewSplogWithConfig(os.Stdout, "", debugFromEnv())
	return splog
}

func debugFromEnv() bool {
	return os.Getenv("HISTPORT_DEBUG") != "" || os.Getenv("DEBUG") != ""
}

// NewSplogWithConfig creates a logger writing messages to w and, if
// logFilePath is not empty, to a rotating log file.
func NewSplogWithConfig(w io.Writer, logFilePath string, debug bool) (*Splog, error) {
	splog := &Splog{writer: w}
	handlers := []slog.Handler{&consoleHandler{writer: w, debug: debug, quiet: &splog.quiet}}

	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := newRotatingFile(logFilePath)
		splog.logFile = file
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String(a.Key, a.Value.Time().Format("2006-01-02 15:04:05.000"))
				}
				return a
			},
		}))
	}

	splog.logger = slog.New(&fanoutHandler{handlers: handlers})
	return splog, nil
}

// Logger exposes the underlying slog.Logger for packages that log
// without depending on tui.
func (s *Splog) Logger() *slog.Logger {
	return s.logger
}

// SetQuiet suppresses console output while a full-screen view owns the
// terminal. The log file keeps receiving records.
func (s *Splog) SetQuiet(quiet bool) {
	s.quiet.Store(quiet)
}

// IsQuiet returns whether console output is suppressed
func (s *Splog) IsQuiet() bool {
	return s.quiet.Load()
}

func (s *Splog) log(level slog.Level, prefix, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.logger.Log(context.Background(), level, prefix+msg)
}

// Info writes an info message
func (s *Splog) Info(format string, args ...any) {
	s.log(slog.LevelInfo, "", format, args...)
}

// Warn writes a warning
func (s *Splog) Warn(format string, args ...any) {
	s.log(slog.LevelWarn, "⚠️  ", format, args...)
}

// Error writes an error message
func (s *Splog) Error(format string, args ...any) {
	s.log(slog.LevelError, "❌ ", format, args...)
}

// Debug writes a debug message
func (s *Splog) Debug(format string, args ...any) {
	s.log(slog.LevelDebug, "", format, args...)
}

// Tip writes a hint for the user
func (s *Splog) Tip(format string, args ...any) {
	s.log(slog.LevelInfo, "💡 ", format, args...)
}

// Page writes content straight to the console
func (s *Splog) Page(content string) {
	if s.quiet.Load() {
		return
	}
	_, _ = fmt.Fprint(s.writer, content)
}

// Newline writes an empty line
func (s *Splog) Newline() {
	s.Page("\n")
}

// Close closes the log file if one was opened
func (s *Splog) Close() error {
	if s.logFile != nil {
		return s.logFile.Close()
	}
	return nil
}
