package exporter

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"drtbatch/pkg/contracts/domain"
)

func testMatrix() *domain.MasterMatrix {
	return &domain.MasterMatrix{
		Tau:     []float64{0.001, 0.01, 0.1},
		Labels:  []string{"sample1", "sample2"},
		Columns: [][]float64{{0, 2.5, 1}, {1, 3, 0.5}},
	}
}

func TestEncodeMatrixWorkbook(t *testing.T) {
	data, err := EncodeMatrixWorkbook(testMatrix())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(MatrixSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Tau", "sample1", "sample2"}, rows[0])
	assert.Equal(t, []string{"0.01", "2.5", "3"}, rows[2])
}

func TestWriteMatrixWorkbook(t *testing.T) {
	w := NewCSVWriter(nil, nil)
	path := filepath.Join(t.TempDir(), "Master_DRT_Matrix.xlsx")

	require.NoError(t, w.WriteMatrixWorkbook(path, testMatrix()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{MatrixSheetName}, f.GetSheetList())
}
