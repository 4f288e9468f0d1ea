package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"drtbatch/internal/infrastructure"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Manager orchestrates pipeline execution
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager creates a new pipeline manager. Nil arguments get defaults.
func NewManager(registry *Registry, config *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer = NoopOperationTracer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: registry,
		config:   config,
		tracer:   tracer,
		logger:   logger,
	}
}

// Execute runs the pipeline. The request parameter "step" selects a single
// step; it is absent, empty or "all" for the full pipeline.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = "operation-" + uuid.New().String()
	}
	ctx = infrastructure.EnsureTraceID(ctx)

	state := NewOperationState(req.ID)
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	var stepParam string
	if v, ok := state.GetConfig(ParamStep); ok {
		stepParam, _ = v.(string)
	}
	ctx, span := m.tracer.TraceOperationExecution(ctx, req.ID, stepParam)
	defer span.End()

	m.logOperationStart(ctx, req)

	manifest := m.newManifest(req)

	steps, err := m.resolveSteps(stepParam)
	if err != nil {
		m.logOperationError(ctx, req.ID, err)
		state.Fail(err)
		m.finish(ctx, span, state, manifest, err)
		return m.createResponse(state), err
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	state.Start()
	err = m.executeSequential(ctx, state, manifest, steps)
	if err == nil && state.HasFailures() {
		failed := state.StagesWithStatus(StepStatusFailed)
		err = fmt.Errorf("%d step(s) failed, first: %s", len(failed), failed[0].ID)
	}

	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	m.finish(ctx, span, state, manifest, err)
	return m.createResponse(state), err
}

// resolveSteps returns the single requested step or every step in
// dependency order. The registry must be consistent either way.
func (m *Manager) resolveSteps(stepParam string) ([]Step, error) {
	if err := m.registry.ValidateDependencies(); err != nil {
		return nil, NewFatalError("invalid step dependencies", err)
	}

	if stepParam != "" && stepParam != StepAll {
		step, err := m.registry.Get(stepParam)
		if err != nil {
			return nil, &OperationError{
				Type: ErrorTypeNotFound,
				Step: stepParam,
				Message: fmt.Sprintf("requested step not found: %s (available: %s)",
					stepParam, strings.Join(m.registry.ListIDs(), ", ")),
			}
		}
		return []Step{step}, nil
	}

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, NewFatalError("failed to get dependency order", err)
	}
	return steps, nil
}

// executeSequential runs steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, manifest *PipelineManifest, steps []Step) error {
	for i, step := range steps {
		if ctx.Err() != nil {
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			return NewCancellationError(step.ID())
		}

		if reason := m.blockedBy(state, step); reason != "" {
			state.GetStage(step.ID()).Skip(reason)
			manifest.RecordStageSkipped(step.ID(), step.Name(), reason)
			m.logger.WarnContext(ctx, "stage_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", reason))
			continue
		}

		m.logger.InfoContext(ctx, "executing_stage",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		if err := m.executeStage(ctx, state, manifest, step); err != nil {
			m.logStageError(ctx, state.ID, step.ID(), err)
			if GetErrorType(err) == ErrorTypeCancellation {
				return err
			}
			if !m.config.ContinueOnError {
				return err
			}
			m.logger.WarnContext(ctx, "stage_failed_continuing",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
		}
	}
	return nil
}

// blockedBy returns why step must not run, or "" when it may. A dependency
// that is not part of this run does not block.
func (m *Manager) blockedBy(state *OperationState, step Step) string {
	if m.config.ContinueOnError {
		return ""
	}
	for _, dep := range step.GetDependencies() {
		if depState := state.GetStage(dep); depState != nil && depState.GetStatus() == StepStatusFailed {
			return fmt.Sprintf("dependency %s failed", dep)
		}
	}
	return ""
}

// executeStage executes a single step with timeout and retry
func (m *Manager) executeStage(ctx context.Context, state *OperationState, manifest *PipelineManifest, step Step) error {
	st := state.GetStage(step.ID())
	if st == nil {
		return NewFatalError(fmt.Sprintf("state of step %s not found", step.ID()), nil)
	}

	if err := step.Validate(state); err != nil {
		verr := WrapError(err, step.ID(), "validation failed")
		verr.Type = ErrorTypeValidation
		st.Fail(verr)
		manifest.RecordStageStart(step.ID(), step.Name())
		manifest.RecordStageFailure(step.ID(), verr, nil)
		return verr
	}

	m.scanData(ctx, manifest, "", requirementsAsOutputs(step.RequiredInputs()))
	if !step.CanRun(manifest) {
		reason := "no input files"
		st.Skip(reason)
		manifest.RecordStageSkipped(step.ID(), step.Name(), reason)
		m.logger.WarnContext(ctx, "stage_skipped_no_input",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()))
		return nil
	}

	ctx, span := m.tracer.TraceStageExecution(ctx, state.ID, step.ID())
	defer span.End()

	timeout := m.config.GetStageTimeout(step.ID())
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retry := m.config.RetryConfig
	attempts := max(retry.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		st.Start()
		manifest.RecordStageStart(step.ID(), step.Name())
		m.logStageStart(ctx, state.ID, step.ID(), attempt)

		start := time.Now()
		err := step.Execute(stageCtx, state)
		duration := time.Since(start)
		counts := countsFromMetadata(st.MetadataSnapshot())

		if err == nil {
			st.Complete()
			m.scanData(ctx, manifest, step.ID(), step.ProducedOutputs())
			manifest.RecordStageCompletion(step.ID(), outputTypes(step.ProducedOutputs()), st.MetadataSnapshot())
			m.tracer.RecordStageCompletion(ctx, span, step.ID(), duration, counts, nil)
			m.logStageComplete(ctx, state.ID, step.ID(), duration, counts)
			return nil
		}

		if IsNoInput(err) {
			st.Skip(err.Error())
			manifest.RecordStageSkipped(step.ID(), step.Name(), err.Error())
			m.tracer.RecordStageCompletion(ctx, span, step.ID(), duration, counts, nil)
			m.logger.WarnContext(ctx, "stage_aborted_no_input",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", err.Error()))
			return nil
		}

		if stageCtx.Err() != nil {
			var stopErr *OperationError
			if ctx.Err() != nil {
				stopErr = NewCancellationError(step.ID())
			} else {
				stopErr = NewTimeoutError(step.ID(), timeout.String())
			}
			stopErr.Cause = err
			return m.failStage(ctx, span, manifest, st, step.ID(), duration, counts, stopErr)
		}

		if !IsRetryable(err) || attempt >= attempts {
			return m.failStage(ctx, span, manifest, st, step.ID(), duration, counts,
				WrapError(err, step.ID(), "step execution failed"))
		}

		delay := m.calculateRetryDelay(attempt, retry)
		m.logger.WarnContext(ctx, "stage_retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-stageCtx.Done():
			var stopErr *OperationError
			if ctx.Err() != nil {
				stopErr = NewCancellationError(step.ID())
			} else {
				stopErr = NewTimeoutError(step.ID(), timeout.String())
			}
			return m.failStage(ctx, span, manifest, st, step.ID(), duration, counts, stopErr)
		}
	}
}

// failStage records a failed step everywhere and returns err
func (m *Manager) failStage(ctx context.Context, span trace.Span, manifest *PipelineManifest, st *StepState, stageID string, duration time.Duration, counts FileCounts, err *OperationError) error {
	st.Fail(err)
	manifest.RecordStageFailure(stageID, err, st.MetadataSnapshot())
	m.tracer.RecordStageCompletion(ctx, span, stageID, duration, counts, err)
	return err
}

// scanData records the files of each output in the manifest
func (m *Manager) scanData(ctx context.Context, manifest *PipelineManifest, stageID string, outputs []DataOutput) {
	for _, out := range outputs {
		if err := manifest.ScanDataDirectory(out, stageID); err != nil {
			m.logger.WarnContext(ctx, "manifest_scan_failed",
				slog.String("data_type", out.Type),
				slog.String("location", out.Location),
				slog.String("error", err.Error()))
		}
	}
}

// calculateRetryDelay grows the delay geometrically up to MaxDelay
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	mult := config.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(mult, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// newManifest starts the manifest of one run
func (m *Manager) newManifest(req OperationRequest) *PipelineManifest {
	root := ""
	if m.config.ManifestPath != "" {
		root = filepath.Dir(m.config.ManifestPath)
	}
	manifest := NewPipelineManifest(req.ID, root)
	if len(req.Parameters) > 0 {
		manifest.Config = make(map[string]interface{}, len(req.Parameters))
		for k, v := range req.Parameters {
			manifest.Config[k] = v
		}
	}
	return manifest
}

// finish closes the run: manifest, telemetry and the completion log
func (m *Manager) finish(ctx context.Context, span trace.Span, state *OperationState, manifest *PipelineManifest, err error) {
	manifest.Finish(err)
	if m.config.ManifestPath != "" {
		if saveErr := manifest.SaveToFile(m.config.ManifestPath); saveErr != nil {
			m.logger.ErrorContext(ctx, "manifest_write_failed",
				slog.String("path", m.config.ManifestPath),
				slog.String("error", saveErr.Error()))
		} else {
			m.logger.DebugContext(ctx, "manifest_written", slog.String("path", m.config.ManifestPath))
		}
	}
	m.tracer.RecordOperationCompletion(ctx, span, state.Duration(), err)
	m.logOperationComplete(ctx, state, manifest.GetProgress())
}

// createResponse creates a response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	snapshot := state.Clone()
	resp := &OperationResponse{
		ID:       snapshot.ID,
		Status:   snapshot.Status,
		Duration: snapshot.Duration(),
		Steps:    snapshot.Steps,
	}
	if snapshot.Error != nil {
		resp.Error = snapshot.Error.Error()
	}
	return resp
}

// requirementsAsOutputs lets requirements be scanned like outputs
func requirementsAsOutputs(reqs []DataRequirement) []DataOutput {
	out := make([]DataOutput, len(reqs))
	for i, r := range reqs {
		out[i] = DataOutput{Type: r.Type, Location: r.Location, Extensions: r.Extensions}
	}
	return out
}

func outputTypes(outputs []DataOutput) []string {
	types := make([]string, len(outputs))
	for i, o := range outputs {
		types[i] = o.Type
	}
	return types
}

// countsFromMetadata reads back the counts a step stored with RecordCounts
func countsFromMetadata(md map[string]interface{}) FileCounts {
	get := func(key string) int {
		v, _ := md[key].(int)
		return v
	}
	return FileCounts{
		Found:    get(ContextKeyFilesFound),
		Written:  get(ContextKeyFilesWritten),
		Rejected: get(ContextKeyFilesRejected),
		Failed:   get(ContextKeyFilesFailed),
	}
}

// IsNoInput reports whether err means a step had nothing to work on
func IsNoInput(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Type == ErrorTypeNoInput
}
