package operations

import (
	"time"

	"drtbatch/internal/config"
)

// Pipeline step identifiers
const (
	StageIDTrim   = "trim"
	StageIDDRT    = "drt"
	StageIDMatrix = "matrix"
)

// Pipeline step names
const (
	StageNameTrim   = "Raw File Trimming"
	StageNameDRT    = "DRT Inversion"
	StageNameMatrix = "Matrix Aggregation"
)

// StepAll selects the full pipeline in OperationRequest.Parameters
const StepAll = "all"

// Request parameter and state config keys
const (
	ParamStep = "step"

	ContextKeyFilesFound    = "files_found"
	ContextKeyFilesWritten  = "files_written"
	ContextKeyFilesRejected = "files_rejected"
	ContextKeyFilesFailed   = "files_failed"
	ContextKeyOutputFile    = "output_file"
)

// Data types tracked in the manifest
const (
	DataTypeRawFiles     = "raw_files"
	DataTypeTrimmedFiles = "trimmed_files"
	DataTypeDRTResults   = "drt_results"
	DataTypeMatrix       = "summary_matrix"
)

// Default timeouts
const (
	DefaultStageTimeout  = 30 * time.Minute
	DefaultTrimTimeout   = config.DefaultTrimTimeout
	DefaultDRTTimeout    = config.DefaultDRTTimeout
	DefaultMatrixTimeout = config.DefaultMatrixTimeout
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration. Only errors
// marked retryable are attempted more than once.
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to run the pipeline
type OperationRequest struct {
	ID         string                 `json:"id"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the outcome of a pipeline run
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}

// FileCounts summarises what a step did with its input files
type FileCounts struct {
	Found    int `json:"found"`
	Written  int `json:"written"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}

// Metadata renders the counts as step metadata
func (c FileCounts) Metadata() map[string]interface{} {
	return map[string]interface{}{
		ContextKeyFilesFound:    c.Found,
		ContextKeyFilesWritten:  c.Written,
		ContextKeyFilesRejected: c.Rejected,
		ContextKeyFilesFailed:   c.Failed,
	}
}
