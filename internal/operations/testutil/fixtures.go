package testutil

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"drtbatch/internal/config"
	"drtbatch/internal/operations"

	"github.com/stretchr/testify/require"
)

// CreateSuccessfulStage returns a step that always succeeds
func CreateSuccessfulStage(id, name string, deps ...string) *MockStage {
	return &MockStage{IDValue: id, NameValue: name, DependenciesValue: deps}
}

// CreateFailingStage returns a step that always fails with err
func CreateFailingStage(id, name string, err error, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(context.Context, *operations.OperationState) error {
			return err
		},
	}
}

// CreateRetryableStage returns a step that fails with a retryable error
// failCount times and then succeeds
func CreateRetryableStage(id, name string, failCount int, deps ...string) *MockStage {
	var calls atomic.Int32
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(context.Context, *operations.OperationState) error {
			if int(calls.Add(1)) <= failCount {
				return operations.NewExecutionError(id, fmt.Errorf("transient failure"), true)
			}
			return nil
		},
	}
}

// CreateSlowStage returns a step that waits for duration or its context
func CreateSlowStage(id, name string, duration time.Duration, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, _ *operations.OperationState) error {
			select {
			case <-time.After(duration):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// FastRetryConfig retries without noticeable delay
func FastRetryConfig(attempts int) operations.RetryConfig {
	return operations.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

// RCSweep returns a logarithmic sweep of n points from 1 MHz down to 0.1 Hz
// over a series resistance r0 and one parallel RC element
func RCSweep(n int, r0, r, c float64) (freq, zReal, zImag []float64) {
	freq = make([]float64, n)
	zReal = make([]float64, n)
	zImag = make([]float64, n)
	for i := range n {
		f := math.Pow(10, 6-7*float64(i)/float64(n-1))
		wrc := 2 * math.Pi * f * r * c
		den := 1 + wrc*wrc
		freq[i] = f
		zReal[i] = r0 + r/den
		zImag[i] = -r * wrc / den
	}
	return freq, zReal, zImag
}

// RawExport renders an instrument export: the fixed header block followed
// by rows of columns joined by delim. extra columns are appended per row.
func RawExport(delim string, freq, zReal, zImag []float64, extra ...float64) string {
	var b strings.Builder
	for i := range config.RawHeaderLines {
		fmt.Fprintf(&b, "Header line %d: instrument metadata\n", i+1)
	}
	for i := range freq {
		fields := []string{
			fmt.Sprintf("%g", freq[i]),
			fmt.Sprintf("%g", zReal[i]),
			fmt.Sprintf("%g", zImag[i]),
		}
		for _, x := range extra {
			fields = append(fields, fmt.Sprintf("%g", x))
		}
		b.WriteString(strings.Join(fields, delim))
		b.WriteString("\n")
	}
	return b.String()
}

// NewPipelineRoot creates a root with every stage directory and returns its paths
func NewPipelineRoot(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	_, err = paths.EnsureRawInput()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

// WriteFile writes content to dir/name
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ReadFile returns the content of path
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// ListDir returns the names in dir, skipping nothing
func ListDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}
