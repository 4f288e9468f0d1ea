package operations_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"drtbatch/internal/operations"
	"drtbatch/internal/operations/testutil"
	"drtbatch/pkg/contracts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationError(t *testing.T) {
	cause := errors.New("read failed")

	tests := []struct {
		name      string
		err       error
		wantType  operations.ErrorType
		retryable bool
		wantMsg   string
	}{
		{"validation", operations.NewValidationError("trim", "no paths"), operations.ErrorTypeValidation, false, "[validation] trim: no paths"},
		{"execution retryable", operations.NewExecutionError("drt", cause, true), operations.ErrorTypeExecution, true, "read failed"},
		{"timeout", operations.NewTimeoutError("drt", "1m0s"), operations.ErrorTypeTimeout, false, "timeout of 1m0s"},
		{"no input", operations.NewNoInputError("matrix", "nothing"), operations.ErrorTypeNoInput, false, "matrix: nothing"},
		{"fatal without step", operations.NewFatalError("broken", nil), operations.ErrorTypeFatal, false, "[fatal] broken"},
		{"plain error", cause, operations.ErrorTypeExecution, false, "read failed"},
		{"wrapped", fmt.Errorf("outer: %w", operations.NewCancellationError("trim")), operations.ErrorTypeCancellation, false, "cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, operations.GetErrorType(tt.err))
			assert.Equal(t, tt.retryable, operations.IsRetryable(tt.err))
			assert.Contains(t, tt.err.Error(), tt.wantMsg)
		})
	}

	assert.Equal(t, operations.ErrorType(""), operations.GetErrorType(nil))
	assert.ErrorIs(t, operations.NewExecutionError("drt", cause, false), cause)
	assert.True(t, operations.IsNoInput(fmt.Errorf("x: %w", operations.NewNoInputError("matrix", "none"))))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, operations.WrapError(nil, "trim", "msg"))

	plain := operations.WrapError(errors.New("disk full"), "trim", "write failed")
	assert.Equal(t, operations.ErrorTypeExecution, plain.Type)
	assert.Equal(t, "trim", plain.Step)
	assert.Equal(t, "[execution] trim: write failed: disk full", plain.Error())

	typed := operations.NewValidationError("", "bad dir")
	wrapped := operations.WrapError(typed, "drt", "ignored")
	assert.Same(t, typed, wrapped)
	assert.Equal(t, "drt", wrapped.Step)
	assert.Equal(t, operations.ErrorTypeValidation, wrapped.Type)
}

func TestOperationStateLifecycle(t *testing.T) {
	state := operations.NewOperationState("op-1")
	assert.Equal(t, operations.OperationStatusPending, state.GetStatus())

	state.SetStage("trim", operations.NewStepState("trim", "Trim"))
	state.SetStage("drt", operations.NewStepState("drt", "DRT"))
	state.SetStage("trim", operations.NewStepState("trim", "Trim again"))
	assert.Equal(t, []string{"trim", "drt"}, state.StageIDs())

	state.Start()
	assert.Equal(t, operations.OperationStatusRunning, state.GetStatus())

	trim := state.GetStage("trim")
	trim.Start()
	trim.RecordCounts(operations.FileCounts{Found: 4, Written: 3, Failed: 1})
	trim.Complete()
	state.GetStage("drt").Fail(errors.New("boom"))

	assert.True(t, state.HasFailures())
	failed := state.StagesWithStatus(operations.StepStatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "drt", failed[0].ID)
	assert.Equal(t, "boom", failed[0].Message)

	state.SetConfig(operations.ParamStep, "all")
	clone := state.Clone()
	state.GetStage("trim").SetMetadata("extra", true)
	state.SetConfig(operations.ParamStep, "drt")
	step, ok := clone.GetConfig(operations.ParamStep)
	require.True(t, ok)
	assert.Equal(t, "all", step)
	_, leaked := clone.Steps["trim"].Metadata["extra"]
	assert.False(t, leaked)
	assert.Equal(t, 3, clone.Steps["trim"].Metadata[operations.ContextKeyFilesWritten])
	assert.Equal(t, 1, clone.Steps["trim"].Attempts)

	state.Fail(errors.New("run failed"))
	assert.Equal(t, operations.OperationStatusFailed, state.GetStatus())
}

func TestProgressTracker(t *testing.T) {
	step := operations.NewStepState("trim", "Trim")
	tracker := operations.NewProgressTracker(step, 4)

	tracker.Increment("a.txt")
	assert.InDelta(t, 25.0, step.Progress, 1e-9)
	assert.Contains(t, step.Message, "Processed 1/4: a.txt")

	for _, name := range []string{"b.txt", "c.txt", "d.txt"} {
		tracker.Increment(name)
	}
	assert.InDelta(t, 100.0, step.Progress, 1e-9)
	assert.Equal(t, "Processed 4/4: d.txt", step.Message)

	// a tracker without a step only counts
	operations.NewProgressTracker(nil, 0).Increment("x.txt")
}

func TestPipelineManifest(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.txt", "1")
	testutil.WriteFile(t, dir, "b.csv", "22")
	testutil.WriteFile(t, dir, "c.md", "333")

	manifest := operations.NewPipelineManifest("op-1", dir)
	assert.NotEmpty(t, manifest.ID)
	assert.Equal(t, operations.ManifestStatusPending, manifest.Status)

	results := operations.DataOutput{Type: "results", Location: dir, Extensions: []string{".txt", ".csv"}}
	require.NoError(t, manifest.ScanDataDirectory(results, "drt"))
	info, ok := manifest.GetData("results")
	require.True(t, ok)
	assert.Equal(t, 2, info.FileCount)
	assert.Equal(t, int64(3), info.TotalSize)
	assert.Equal(t, []string{"a.txt", "b.csv"}, info.Files)
	assert.Equal(t, "drt", info.CreatedBy)

	// a pattern narrows the files before the extension filter
	testutil.WriteFile(t, dir, "a.png", "4444")
	prefixed := operations.DataOutput{Type: "prefixed", Location: dir, Pattern: "a*", Extensions: []string{".txt", ".md"}}
	require.NoError(t, manifest.ScanDataDirectory(prefixed, ""))
	info, ok = manifest.GetData("prefixed")
	require.True(t, ok)
	assert.Equal(t, []string{"a.txt"}, info.Files)

	missing := operations.DataOutput{Type: "missing", Location: filepath.Join(dir, "nope"), Extensions: []string{".txt"}}
	require.NoError(t, manifest.ScanDataDirectory(missing, ""))
	info, ok = manifest.GetData("missing")
	require.True(t, ok)
	assert.Zero(t, info.FileCount)
	_, ok = manifest.GetData("never_scanned")
	assert.False(t, ok)

	manifest.RecordStageStart("trim", "Trim")
	assert.Equal(t, 0, manifest.GetProgress())
	manifest.RecordStageCompletion("trim", []string{"trimmed_files"}, map[string]interface{}{"files_written": 2})
	manifest.RecordStageSkipped("matrix", "Matrix", "no input files")
	assert.Equal(t, 100, manifest.GetProgress())

	manifest.Finish(nil)
	path := filepath.Join(dir, "out", "run_manifest.json")
	require.NoError(t, manifest.SaveToFile(path))

	loaded, err := operations.LoadManifestFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, manifest.ID, loaded.ID)
	assert.Equal(t, operations.ManifestStatusCompleted, loaded.Status)
	assert.Equal(t, contracts.Version, loaded.Tool.Version)
	require.Len(t, loaded.Stages, 2)
	assert.Equal(t, "skipped", loaded.Stages[1].Status)
	assert.Equal(t, "no input files", loaded.Stages[1].Error)
	assert.Equal(t, []string{"trimmed_files"}, loaded.Stages[0].OutputData)
}
