// Package logging builds slog loggers for services using the retry helpers
// and provides a throttled retry observer that writes to such a logger.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Keksclan/goRawrRetry/retry"
	"github.com/lmittmann/tint"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options defines parameters for logger creation.
type Options struct {
	// Level is the minimum level written: debug, info, warn or error.
	// Unknown values mean info.
	Level string
	// File, when set, adds a JSON handler writing to a rotated log file.
	File string
	// NoColor disables ANSI colors on the console handler.
	NoColor bool
	// Console overrides the console writer. Defaults to os.Stderr.
	Console io.Writer
}

// New returns a logger writing colored text to the console and, when
// o.File is set, JSON to a size-rotated file. The returned close function
// releases the file and is always safe to call.
func New(o Options) (*slog.Logger, func() error) {
	lvl := ParseLevel(o.Level)
	console := o.Console
	if console == nil {
		console = os.Stderr
	}

	h := slog.Handler(tint.NewHandler(console, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		NoColor:    o.NoColor,
	}))
	closeFn := func() error { return nil }

	if o.File != "" {
		w := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		closeFn = w.Close
		h = fanout{h, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})}
	}

	return slog.New(h), closeFn
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// OnRetry returns a retry observer that logs a warning for scheduled
// retries. At most one line is written per interval; the first retry always
// logs. A non-positive interval logs every retry.
func OnRetry(logger *slog.Logger, operation string, interval time.Duration) retry.OnRetryFunc {
	s := &rate.Sometimes{First: 1, Interval: interval}
	return func(err error, attempt int, wait time.Duration) {
		log := func() {
			logger.Warn("retrying operation",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		}
		if interval <= 0 {
			log()
			return
		}
		s.Do(log)
	}
}

// fanout writes each record to every handler that accepts its level. A
// failing handler does not keep the record from the others.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
