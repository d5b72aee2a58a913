// Package logging provides structured logging helpers for workdigest.
//
// All components log through log/slog. This package fixes the attribute keys
// (batch, item, stage, reason) so that a single item can be followed through
// a run, and builds the process logger from the configured level and format.
//
//	logger := logging.WithService(slog.Default(), "drive")
//	logger.Warn("item failed", logging.ItemID(id), logging.Reason(reason))
//
// Email addresses are hashed with AnonymizeEmail and tokens are masked with
// SanitizeToken before they reach a log line.
package logging
