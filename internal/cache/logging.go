package cache

import (
	"context"
	"log/slog"

	"github.com/LavishGent/larder/internal/types"
)

// NewLogger returns the slog logger for a tier, wrapping an injected
// types.Logger when one is configured.
func NewLogger(opts *types.Options, component string) *slog.Logger {
	return baseLogger(opts).With("component", component)
}

func baseLogger(opts *types.Options) *slog.Logger {
	if opts != nil && opts.Logger != nil {
		return slog.New(slogAdapter{logger: opts.Logger})
	}
	return slog.Default()
}

// slogAdapter forwards slog records to a types.Logger.
//
//nolint:govet // Simple adapter struct - alignment optimization minimal
type slogAdapter struct {
	attrs  []slog.Attr
	logger types.Logger
	group  string
}

// Enabled implements slog.Handler. Level filtering is left to the wrapped logger.
func (a slogAdapter) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Handler interface requires passing Record by value
func (a slogAdapter) Handle(_ context.Context, r slog.Record) error {
	args := make([]any, 0, (len(a.attrs)+r.NumAttrs())*2)
	for _, attr := range a.attrs {
		args = append(args, attr.Key, attr.Value.Any())
	}
	r.Attrs(func(attr slog.Attr) bool {
		args = append(args, a.qualify(attr.Key), attr.Value.Any())
		return true
	})

	switch {
	case r.Level >= slog.LevelError:
		a.logger.Error(r.Message, args...)
	case r.Level >= slog.LevelWarn:
		a.logger.Warn(r.Message, args...)
	case r.Level >= slog.LevelInfo:
		a.logger.Info(r.Message, args...)
	default:
		a.logger.Debug(r.Message, args...)
	}
	return nil
}

func (a slogAdapter) qualify(key string) string {
	if a.group == "" {
		return key
	}
	return a.group + "." + key
}

// WithAttrs implements slog.Handler.
func (a slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(a.attrs), len(a.attrs)+len(attrs))
	copy(newAttrs, a.attrs)
	for _, attr := range attrs {
		attr.Key = a.qualify(attr.Key)
		newAttrs = append(newAttrs, attr)
	}
	return slogAdapter{logger: a.logger, attrs: newAttrs, group: a.group}
}

// WithGroup implements slog.Handler.
func (a slogAdapter) WithGroup(name string) slog.Handler {
	if name == "" {
		return a
	}
	return slogAdapter{logger: a.logger, attrs: a.attrs, group: a.qualify(name)}
}
