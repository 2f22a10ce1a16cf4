// Package observability provides production-grade observability for the
// intake orchestrator: structured logging, metrics, and distributed
// tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Log fields never include transcript text: the conversation carries
// clinical content, so only identifiers, stage names, and counters are
// emitted.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds conversation context to a logger.
// Returns a new logger with conversation_id, stage, and turn fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "conv-123", "guardrail", 4)
//	enriched.Info("classifying") // includes conversation_id, stage, turn
func EnrichLogger(logger *slog.Logger, conversationID, stage string, turn int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("conversation_id", conversationID),
		slog.String("stage", stage),
		slog.Int("turn", turn),
	)
}

// LogTurnStart logs the start of a conversation turn.
func LogTurnStart(logger *slog.Logger, conversationID string, turn int, resumed bool) {
	if logger == nil {
		return
	}
	logger.Info("turn starting",
		slog.String("conversation_id", conversationID),
		slog.Int("turn", turn),
		slog.Bool("resumed", resumed),
	)
}

// LogTurnComplete logs successful turn completion.
func LogTurnComplete(logger *slog.Logger, conversationID string, turn int, durationMs float64, terminateReason string) {
	if logger == nil {
		return
	}
	logger.Info("turn completed",
		slog.String("conversation_id", conversationID),
		slog.Int("turn", turn),
		slog.Float64("duration_ms", durationMs),
		slog.String("terminate_reason", terminateReason),
	)
}

// LogTurnError logs turn failure.
func LogTurnError(logger *slog.Logger, conversationID string, turn int, err error, durationMs float64, lastStage string) {
	if logger == nil {
		return
	}
	logger.Error("turn failed",
		slog.String("conversation_id", conversationID),
		slog.Int("turn", turn),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_stage", lastStage),
	)
}

// LogStageStart logs stage execution start.
func LogStageStart(logger *slog.Logger, stage string) {
	if logger == nil {
		return
	}
	logger.Debug("stage starting",
		slog.String("stage", stage),
	)
}

// LogStageComplete logs successful stage completion.
func LogStageComplete(logger *slog.Logger, stage string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stage completed",
		slog.String("stage", stage),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStageError logs stage execution error.
func LogStageError(logger *slog.Logger, stage string, err error) {
	if logger == nil {
		return
	}
	logger.Error("stage failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

// LogTermination logs a conversation reaching a terminal state.
func LogTermination(logger *slog.Logger, conversationID, reason string) {
	if logger == nil {
		return
	}
	logger.Info("conversation terminated",
		slog.String("conversation_id", conversationID),
		slog.String("reason", reason),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, stage string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("stage", stage),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs checkpoint failure.
func LogCheckpointError(logger *slog.Logger, stage string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("stage", stage),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
