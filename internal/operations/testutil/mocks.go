package testutil

import (
	"context"
	"sync"

	"drtbatch/internal/operations"
)

// MockStage is a configurable implementation of operations.Step
type MockStage struct {
	IDValue           string
	NameValue         string
	DependenciesValue []string
	InputsValue       []operations.DataRequirement

	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	mu           sync.Mutex
	executeCalls int
}

// ID returns the step ID
func (m *MockStage) ID() string { return m.IDValue }

// Name returns the step name
func (m *MockStage) Name() string { return m.NameValue }

// GetDependencies returns the step dependencies
func (m *MockStage) GetDependencies() []string {
	if m.DependenciesValue == nil {
		return []string{}
	}
	return m.DependenciesValue
}

// Execute counts the call and runs ExecuteFunc
func (m *MockStage) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.executeCalls++
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return nil
}

// Validate runs ValidateFunc
func (m *MockStage) Validate(state *operations.OperationState) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(state)
	}
	return nil
}

// RequiredInputs returns InputsValue
func (m *MockStage) RequiredInputs() []operations.DataRequirement {
	return m.InputsValue
}

// ProducedOutputs returns nothing
func (m *MockStage) ProducedOutputs() []operations.DataOutput {
	return nil
}

// CanRun checks InputsValue against the manifest
func (m *MockStage) CanRun(manifest *operations.PipelineManifest) bool {
	for _, req := range m.InputsValue {
		data, ok := manifest.GetData(req.Type)
		if !ok || data.FileCount < req.MinCount {
			return false
		}
	}
	return true
}

// ExecuteCalls returns how many times Execute ran
func (m *MockStage) ExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeCalls
}

var _ operations.Step = (*MockStage)(nil)
