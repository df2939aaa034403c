// Package logging provides small structured-logging helpers shared across
// the transit store, domain services and CLI, layered on top of log/slog.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// LogOperation records a successful, noteworthy operation at info level.
// The operation string becomes the log message, e.g. "spatial index
// loaded".
func LogOperation(logger *slog.Logger, operation string, attrs ...slog.Attr) {
	logger.LogAttrs(context.Background(), slog.LevelInfo, operation, attrs...)
}

// LogError records a failed operation at error level, attaching the error
// under the conventional "error" key.
func LogError(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("error", err.Error()))
	logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// SafeCloseWithLogging closes c and logs any error instead of discarding it,
// for use in defer statements where the close error cannot otherwise be
// surfaced to the caller.
func SafeCloseWithLogging(c io.Closer, logger *slog.Logger, what string) {
	if err := c.Close(); err != nil {
		LogError(logger, "failed to close "+what, err)
	}
}
