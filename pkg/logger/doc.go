// Package logger builds log/slog loggers with a small set of functional
// options and offers attribute helpers with consistent key names.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment("production", "flags-api"),
//		logger.WithAttr(slog.String("region", "eu-west-1")),
//	)
//	log.Info("feature flag updated", logger.Feature("checkout_v2"), logger.Operation("activate"))
//
// New defaults to JSON output at info level on stdout. Discard returns a
// logger that drops everything, which libraries use when the host does not
// provide one.
package logger
