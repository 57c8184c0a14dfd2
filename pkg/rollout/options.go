package rollout

import (
	"log/slog"
	"time"
)

// Option configures an Engine.
type Option func(*Engine)

// WithKeyPrefix sets the namespace of every key the engine writes.
// Empty prefixes are ignored.
func WithKeyPrefix(prefix string) Option {
	return func(e *Engine) {
		if prefix != "" {
			e.keys = keyspace{prefix: prefix}
		}
	}
}

// WithDefaultFormat sets the encoding used for flags that have no record yet.
// The default is FormatSets.
func WithDefaultFormat(f Format) Option {
	return func(e *Engine) {
		if f != FormatAuto {
			e.fallback = f
		}
	}
}

// WithFormat pins every read to the given encoding regardless of what the
// record says. FormatAuto restores per-record resolution.
func WithFormat(f Format) Option {
	return func(e *Engine) {
		e.forced = f
	}
}

// WithRandomizePercentage makes users bucket differently for each flag.
func WithRandomizePercentage(enabled bool) Option {
	return func(e *Engine) {
		e.flagOpts.randomize = enabled
	}
}

// WithIDField sets the struct field or map key user ids are read from.
func WithIDField(field string) Option {
	return func(e *Engine) {
		if field != "" {
			e.flagOpts.identity.field = field
		}
	}
}

// WithIDExtractor replaces the built-in user id resolution entirely.
func WithIDExtractor(fn IDExtractor) Option {
	return func(e *Engine) {
		e.flagOpts.identity.extractor = fn
	}
}

// WithLogger sets the logger. Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithGroup registers a group predicate at construction time.
func WithGroup(name string, fn GroupFunc) Option {
	return func(e *Engine) {
		e.groups.define(name, fn)
	}
}
