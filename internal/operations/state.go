package operations

import (
	"sync"
	"time"
)

// OperationStatusValue represents the overall run status
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState represents the complete state of one pipeline run
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	// Steps in execution order
	Steps map[string]*StepState `json:"steps"`
	order []string

	// Config holds the request parameters
	Config map[string]interface{} `json:"config"`

	Error error `json:"-"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Config:    make(map[string]interface{}),
	}
}

// Start marks the run as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the run as completed
func (p *OperationState) Complete() {
	p.finish(OperationStatusCompleted, nil)
}

// Fail marks the run as failed
func (p *OperationState) Fail(err error) {
	p.finish(OperationStatusFailed, err)
}

// Cancel marks the run as cancelled by err
func (p *OperationState) Cancel(err error) {
	p.finish(OperationStatusCancelled, err)
}

func (p *OperationState) finish(status OperationStatusValue, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = status
	if err != nil {
		p.Error = err
	}
}

// GetStatus returns the run status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific step
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stageID]
}

// SetStage records the state of a step, keeping first-set order
func (p *OperationState) SetStage(stageID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.Steps[stageID]; !exists {
		p.order = append(p.order, stageID)
	}
	p.Steps[stageID] = state
}

// StageIDs returns step IDs in the order they were added
func (p *OperationState) StageIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.order...)
}

// GetConfig retrieves a request parameter
func (p *OperationState) GetConfig(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Config[key]
	return val, ok
}

// SetConfig sets a request parameter
func (p *OperationState) SetConfig(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Config[key] = value
}

// Duration returns the duration of the run
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// StagesWithStatus returns the steps with the given status in execution order
func (p *OperationState) StagesWithStatus(status StepStatus) []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*StepState
	for _, id := range p.order {
		if st := p.Steps[id]; st != nil && st.GetStatus() == status {
			out = append(out, st)
		}
	}
	return out
}

// HasFailures returns true if any step has failed
func (p *OperationState) HasFailures() bool {
	return len(p.StagesWithStatus(StepStatusFailed)) > 0
}

// Clone creates a deep copy of the operation state
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &OperationState{
		ID:        p.ID,
		Status:    p.Status,
		StartTime: p.StartTime,
		Steps:     make(map[string]*StepState, len(p.Steps)),
		order:     append([]string(nil), p.order...),
		Config:    make(map[string]interface{}, len(p.Config)),
		Error:     p.Error,
	}
	if p.EndTime != nil {
		end := *p.EndTime
		clone.EndTime = &end
	}

	for id, st := range p.Steps {
		st.mu.RLock()
		clone.Steps[id] = &StepState{
			ID:        st.ID,
			Name:      st.Name,
			Status:    st.Status,
			StartTime: st.StartTime,
			EndTime:   st.EndTime,
			Progress:  st.Progress,
			Message:   st.Message,
			Error:     st.Error,
			Attempts:  st.Attempts,
			Metadata:  make(map[string]interface{}, len(st.Metadata)),
		}
		for k, v := range st.Metadata {
			clone.Steps[id].Metadata[k] = v
		}
		st.mu.RUnlock()
	}
	for k, v := range p.Config {
		clone.Config[k] = v
	}
	return clone
}
