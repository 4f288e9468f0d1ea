package dataprocessing

import (
	"errors"
	"strings"

	"drtbatch/pkg/contracts/domain"
)

// ErrNoResults is returned by Aggregate when no gamma column can be assembled
var ErrNoResults = errors.New("no DRT results to aggregate")

// MatrixLabel derives a column label from a DRT result filename by removing
// the DRT prefix and a .csv or .txt extension.
func MatrixLabel(fileName, drtPrefix string) string {
	label := strings.TrimPrefix(fileName, drtPrefix)
	for _, ext := range []string{".csv", ".txt"} {
		if strings.HasSuffix(label, ext) {
			return strings.TrimSuffix(label, ext)
		}
	}
	return label
}

// Aggregate aligns results, in the given order, on the tau axis of the first
// result. Lengths are reconciled by tail truncation only: a gamma column
// longer than the axis is cut to the axis, and a shorter one cuts the axis
// and every column accumulated so far. The final row count is therefore the
// minimum length seen, and the outcome depends on the order of results.
//
// Each result's Name becomes its column label.
func Aggregate(results []domain.DRTResult) (*domain.MasterMatrix, error) {
	var (
		axis    []float64
		columns [][]float64
		labels  []string
		started bool
	)

	for _, result := range results {
		if !started {
			axis = result.Tau
			started = true
		}

		gamma := result.Gamma
		if len(gamma) != len(axis) {
			n := min(len(gamma), len(axis))
			gamma = gamma[:n]
			if len(axis) > n {
				axis = axis[:n]
				for i := range columns {
					columns[i] = columns[i][:n]
				}
			}
		}

		columns = append(columns, gamma)
		labels = append(labels, result.Name)
	}

	if !started || len(columns) == 0 {
		return nil, ErrNoResults
	}

	return &domain.MasterMatrix{
		Tau:     append([]float64(nil), axis...),
		Labels:  labels,
		Columns: cloneColumns(columns),
	}, nil
}

func cloneColumns(columns [][]float64) [][]float64 {
	out := make([][]float64, len(columns))
	for i, col := range columns {
		out[i] = append([]float64(nil), col...)
	}
	return out
}
