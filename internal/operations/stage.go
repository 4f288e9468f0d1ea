package operations

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// DataRequirement specifies data needed for a step to run
type DataRequirement struct {
	Type     string `json:"type"`      // e.g. "raw_files", "trimmed_files"
	Location string `json:"location"`  // directory holding the data
	MinCount int    `json:"min_count"` // minimum number of files
	Optional bool   `json:"optional"`

	// Extensions selects the files counted, matched case-insensitively
	Extensions []string `json:"extensions"`
}

// DataOutput specifies data produced by a step
type DataOutput struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	Pattern  string `json:"pattern"` // e.g. "DRT_*.csv"

	Extensions []string `json:"extensions"`
}

// Step represents a single step of the pipeline
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// Execute runs the step with the given context and operation state
	Execute(ctx context.Context, state *OperationState) error

	// Validate checks if the step can be executed with the current state
	Validate(state *OperationState) error

	// GetDependencies returns the IDs of steps that run before this step
	GetDependencies() []string

	// RequiredInputs returns the data requirements for this step to run
	RequiredInputs() []DataRequirement

	// ProducedOutputs returns the data outputs this step produces
	ProducedOutputs() []DataOutput

	// CanRun checks if the step can run based on available data
	CanRun(manifest *PipelineManifest) bool
}

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the runtime record of one step. All access goes through its
// methods; the exported fields are read directly only on clones.
type StepState struct {
	mu        sync.RWMutex           `json:"-"`
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StepStatus             `json:"status"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Progress  float64                `json:"progress"`
	Message   string                 `json:"message"`
	Error     error                  `json:"-"`
	Attempts  int                    `json:"attempts"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewStepState creates a pending step
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:       id,
		Name:     name,
		Status:   StepStatusPending,
		Metadata: make(map[string]interface{}),
	}
}

// Start begins a new attempt. Progress and the previous error are reset.
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime, s.EndTime = &now, nil
	s.Status = StepStatusActive
	s.Progress = 0
	s.Error = nil
	s.Attempts++
}

// finish moves the step to a terminal status; callers hold the lock
func (s *StepState) finish(status StepStatus) {
	now := time.Now()
	s.EndTime = &now
	s.Status = status
}

// Complete marks the step completed
func (s *StepState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(StepStatusCompleted)
	s.Progress = 100
}

// Fail marks the step failed with err
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(StepStatusFailed)
	s.Error = err
	if err != nil {
		s.Message = err.Error()
	}
}

// Skip marks the step skipped; reason becomes its message
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(StepStatusSkipped)
	s.Message = reason
}

// UpdateProgress sets progress (0-100) and message
func (s *StepState) UpdateProgress(progress float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Progress, s.Message = progress, message
}

// SetMetadata stores one metadata value
func (s *StepState) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Metadata == nil {
		s.Metadata = make(map[string]interface{})
	}
	s.Metadata[key] = value
}

// RecordCounts stores the per-file outcome counts in the metadata
func (s *StepState) RecordCounts(counts FileCounts) {
	for k, v := range counts.Metadata() {
		s.SetMetadata(k, v)
	}
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// MetadataSnapshot returns a copy of the metadata
func (s *StepState) MetadataSnapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.Metadata)
}

// Duration is the elapsed time of the last attempt, up to now if it is
// still running
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.StartTime == nil:
		return 0
	case s.EndTime == nil:
		return time.Since(*s.StartTime)
	default:
		return s.EndTime.Sub(*s.StartTime)
	}
}

// BaseStage carries the identity and data contract of a step. Embedding
// types supply Execute and, when they need more checks, Validate.
type BaseStage struct {
	id           string
	name         string
	dependencies []string
	inputs       []DataRequirement
	outputs      []DataOutput
}

// NewBaseStage creates a step description. inputs decide CanRun; outputs
// are scanned into the manifest after the step completes.
func NewBaseStage(id, name string, dependencies []string, inputs []DataRequirement, outputs []DataOutput) BaseStage {
	return BaseStage{
		id:           id,
		name:         name,
		dependencies: slices.Clone(dependencies),
		inputs:       inputs,
		outputs:      outputs,
	}
}

// ID returns the step ID
func (b *BaseStage) ID() string { return b.id }

// Name returns the step name
func (b *BaseStage) Name() string { return b.name }

// GetDependencies returns the IDs of the steps that precede this one
func (b *BaseStage) GetDependencies() []string { return b.dependencies }

// Validate accepts any state
func (b *BaseStage) Validate(*OperationState) error { return nil }

// RequiredInputs returns the data the step consumes
func (b *BaseStage) RequiredInputs() []DataRequirement { return b.inputs }

// ProducedOutputs returns the data the step writes
func (b *BaseStage) ProducedOutputs() []DataOutput { return b.outputs }

// CanRun reports whether every mandatory input is present in manifest
func (b *BaseStage) CanRun(manifest *PipelineManifest) bool {
	return requirementsMet(b.inputs, manifest)
}

// requirementsMet checks requirements against the data recorded in manifest
func requirementsMet(requirements []DataRequirement, manifest *PipelineManifest) bool {
	for _, req := range requirements {
		if req.Optional {
			continue
		}
		if manifest == nil {
			return false
		}
		data, ok := manifest.GetData(req.Type)
		if !ok || data.FileCount < req.MinCount {
			return false
		}
	}
	return true
}
