package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Feature records the feature flag name under the key "feature".
func Feature(name string) slog.Attr {
	return slog.String("feature", name)
}

// Operation records a mutation name under the key "operation".
func Operation(op string) slog.Attr {
	return slog.String("operation", op)
}

// Actor records who triggered a change under the key "actor".
// An empty actor returns an empty Attr.
func Actor(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("actor", id)
}

// Percentage records a rollout percentage under the key "percentage".
func Percentage(p float64) slog.Attr {
	return slog.Float64("percentage", p)
}

// Count records a number of items under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}
