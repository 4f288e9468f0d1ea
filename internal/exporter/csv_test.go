package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drtbatch/internal/dataprocessing"
	"drtbatch/pkg/contracts/domain"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{
			name: "headers and records",
			options: WriteOptions{
				Headers: []string{"tau", "gamma"},
				Records: [][]string{{"0.1", "2"}, {"1", "3.5"}},
			},
			want: "tau,gamma\n0.1,2\n1,3.5\n",
		},
		{
			name: "tab delimiter without header",
			options: WriteOptions{
				Records:   [][]string{{"1000", "10.5", "-2.25"}},
				Delimiter: '\t',
			},
			want: "1000\t10.5\t-2.25\n",
		},
		{
			name: "BOM prefix",
			options: WriteOptions{
				Headers:   []string{"Tau"},
				BOMPrefix: true,
			},
			want: "\xEF\xBB\xBFTau\n",
		},
		{
			name: "labels with commas are quoted",
			options: WriteOptions{
				Headers: []string{"Tau", "cell 1, 25C"},
			},
			want: "Tau,\"cell 1, 25C\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.options)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestWriteTrimmedSeries(t *testing.T) {
	w := NewCSVWriter(nil, nil)
	path := filepath.Join(t.TempDir(), "trimmed_sample1.txt")

	series := domain.TrimmedSeries{
		Name:      "sample1.txt",
		Frequency: []float64{100000, 0.1},
		ZReal:     []float64{10.5, 1e-7},
		ZImag:     []float64{-2.25, -1234567.5},
	}
	require.NoError(t, w.WriteTrimmedSeries(path, series))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "100000\t10.5\t-2.25\n0.1\t1e-07\t-1.2345675e+06\n", string(content))

	// Round trip through the DRT stage reader
	back, err := dataprocessing.ReadTrimmedSeries(strings.NewReader(string(content)), "trimmed_sample1.txt")
	require.NoError(t, err)
	assert.Equal(t, series.Frequency, back.Frequency)
	assert.Equal(t, series.ZReal, back.ZReal)
	assert.Equal(t, series.ZImag, back.ZImag)

	// Rewriting identical data is byte-identical
	require.NoError(t, w.WriteTrimmedSeries(path, series))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, again)
}

func TestWriteDRTResult(t *testing.T) {
	w := NewCSVWriter(nil, nil)
	path := filepath.Join(t.TempDir(), "DRT_sample1.txt")

	require.NoError(t, w.WriteDRTResult(path, domain.DRTResult{
		Name:  "sample1",
		Tau:   []float64{0.001, 0.01},
		Gamma: []float64{0, 4.5},
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tau,gamma\n0.001,0\n0.01,4.5\n", string(content))
}

func TestWriteMatrix(t *testing.T) {
	w := NewCSVWriter(nil, nil)
	path := filepath.Join(t.TempDir(), "3_Summary_Matrix", "Master_DRT_Matrix.csv")

	matrix := &domain.MasterMatrix{
		Tau:     []float64{0.001, 0.1},
		Labels:  []string{"sample1", "sample2"},
		Columns: [][]float64{{1.5, 2}, {3, 4.25}},
	}
	require.NoError(t, w.WriteMatrix(path, matrix))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Tau,sample1,sample2\n0.001,1.5,3\n0.1,2,4.25\n", string(content))
}
