package operations

import (
	"context"
	"log/slog"
	"time"
)

// logOperationStart logs the start of a pipeline run
func (m *Manager) logOperationStart(ctx context.Context, req OperationRequest) {
	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", req.ID),
		slog.Any("parameters", req.Parameters))
}

// logOperationComplete logs the end of a pipeline run with the steps it
// covered and the share of recorded steps that finished
func (m *Manager) logOperationComplete(ctx context.Context, state *OperationState, progress int) {
	m.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", state.ID),
		slog.String("status", string(state.GetStatus())),
		slog.Duration("duration", state.Duration()),
		slog.Any("steps", state.StageIDs()),
		slog.Int("progress", progress))
}

// logOperationError logs a run-level error
func (m *Manager) logOperationError(ctx context.Context, operationID string, err error) {
	m.logger.ErrorContext(ctx, "operation_error",
		slog.String("operation_id", operationID),
		slog.String("error_type", string(GetErrorType(err))),
		slog.Any("error", err))
}

// logStageStart logs the start of a step attempt
func (m *Manager) logStageStart(ctx context.Context, operationID, stageID string, attempt int) {
	m.logger.InfoContext(ctx, "stage_start",
		slog.String("operation_id", operationID),
		slog.String("step", stageID),
		slog.Int("attempt", attempt))
}

// logStageComplete logs a completed step with its file counts
func (m *Manager) logStageComplete(ctx context.Context, operationID, stageID string, duration time.Duration, counts FileCounts) {
	m.logger.InfoContext(ctx, "stage_complete",
		slog.String("operation_id", operationID),
		slog.String("step", stageID),
		slog.Duration("duration", duration),
		slog.Group("files",
			slog.Int("found", counts.Found),
			slog.Int("written", counts.Written),
			slog.Int("rejected", counts.Rejected),
			slog.Int("failed", counts.Failed)))
}

// logStageError logs a failed step. Cancellation is reported at warn level
// since it is requested, not a fault of the step.
func (m *Manager) logStageError(ctx context.Context, operationID, stageID string, err error) {
	level := slog.LevelError
	if GetErrorType(err) == ErrorTypeCancellation {
		level = slog.LevelWarn
	}
	m.logger.Log(ctx, level, "stage_error",
		slog.String("operation_id", operationID),
		slog.String("step", stageID),
		slog.String("error_type", string(GetErrorType(err))),
		slog.Bool("retryable", IsRetryable(err)),
		slog.Any("error", err))
}
