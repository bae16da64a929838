// Package logger builds the structured logger used by the application.
//
// Records are JSON lines. Context extractors add request-scoped attributes
// at log time:
//
//	log := logger.New(logger.Config{Level: "debug"}, logger.RequestIDExtractor)
//	log.InfoContext(r.Context(), "dispatched", slog.String("controller", "User"))
//
// With a SentryDSN the same records also reach Sentry: warnings as logs,
// errors as issues. An empty DSN keeps everything local.
package logger
