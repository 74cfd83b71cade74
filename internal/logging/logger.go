package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithSource returns a logger scoped to one change-feed source.
// Use this for all logging while a source's batch is processed.
func WithSource(sourceID, table string) *slog.Logger {
	return slog.With(
		"source", sourceID,
		"table", table,
	)
}

// WithRecord returns a logger scoped to a single unified record.
func WithRecord(logger *slog.Logger, partitionKey, recordType string) *slog.Logger {
	return logger.With(
		"partition_key", partitionKey,
		"record_type", recordType,
	)
}
