// Package logging builds the structured loggers used across the tutor
// pipeline and carries them through request contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Options configures a logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format defaults to JSON.
	Format Format
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// Attrs are attached to every record, e.g. the service version.
	Attrs []slog.Attr
}

// ForMode returns the defaults used by the CLI: text at debug level in
// dev, JSON at info level otherwise.
func ForMode(mode string) Options {
	if mode == "dev" {
		return Options{Level: "debug", Format: FormatText}
	}
	return Options{Level: "info", Format: FormatJSON}
}

// New builds a logger from opts.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	if opts.Format == FormatText {
		h = slog.NewTextHandler(w, handlerOpts)
	} else {
		h = slog.NewJSONHandler(w, handlerOpts)
	}
	if len(opts.Attrs) > 0 {
		h = h.WithAttrs(opts.Attrs)
	}
	return slog.New(h)
}

// ParseLevel maps a level name to slog.Level. Unknown names map to info.
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

type loggerKey struct{}

// ToContext stores l in ctx.
func ToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// WithSession returns a context whose logger tags records with the session id.
func WithSession(ctx context.Context, sessionID string) (context.Context, *slog.Logger) {
	l := FromContext(ctx).With("session_id", sessionID)
	return ToContext(ctx, l), l
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
