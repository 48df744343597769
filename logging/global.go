// Package logging wraps log/slog with package-level helpers, a console plus
// rotating-file handler and an HTTP request logger.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/iyakuhin-supply/config"
)

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingWriter
}

var DefaultLoggingService *LoggingService

// Options configures InitLogger
type Options struct {
	Env            string
	Level          string
	Dir            string // Empty disables the file handler
	RetentionWeeks int
	MaxFileSize    int64
}

// InitLogger initializes the global logger instance
func InitLogger(opts Options) {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level),
	})

	service := &LoggingService{}
	handlers := []slog.Handler{consoleHandler}

	if opts.Dir != "" {
		writer, err := NewRotatingWriter(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
		if err != nil {
			slog.New(consoleHandler).Error("Failed to initialize rotating log file, logging to console only", "error", err)
		} else {
			service.file = writer
			handlers = append(handlers, slog.NewJSONHandler(writer, &slog.HandlerOptions{
				Level: parseLogLevel(opts.Level),
			}))
		}
	}

	service.Logger = slog.New(&multiHandler{handlers: handlers})
	DefaultLoggingService = service
	slog.SetDefault(service.Logger)
}

// Close flushes and closes the log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	return DefaultLoggingService.file.Close()
}

// GetConsoleLogLevel picks the console level: tests stay quiet, prod and
// staging default to warn, an explicit LOG_LEVEL wins elsewhere.
func GetConsoleLogLevel(env, level string) slog.Level {
	switch strings.ToLower(env) {
	case config.EnvTest:
		return slog.LevelError
	case config.EnvProduction, config.EnvStaging:
		if level == "" {
			return slog.LevelWarn
		}
	}
	return parseLogLevel(level)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Fallback to console logger if not initialized
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return DefaultLoggingService.Logger
}

// Logger returns the global logger, or a console fallback before InitLogger
func Logger() *slog.Logger {
	return logger()
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
