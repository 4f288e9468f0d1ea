package dataprocessing

import (
	"strings"
	"testing"

	apperrors "drtbatch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTrimmedSeries(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLen  int
		wantType apperrors.ErrorType
	}{
		{
			name:    "three tab-delimited columns",
			content: "1000\t10.5\t-2.25\n100\t11\t-3.5\n",
			wantLen: 2,
		},
		{
			name:    "extra columns ignored",
			content: "1000\t10.5\t-2.25\t7\n",
			wantLen: 1,
		},
		{
			name:     "too few columns",
			content:  "1000\t10.5\n",
			wantType: apperrors.ErrTypeParsing,
		},
		{
			name:     "non-numeric value",
			content:  "1000\tabc\t-2.25\n",
			wantType: apperrors.ErrTypeParsing,
		},
		{
			name:     "empty file",
			content:  "",
			wantType: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, err := ReadTrimmedSeries(strings.NewReader(tt.content), "trimmed_s1.txt")
			if tt.wantType != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, series.Len())
			assert.Equal(t, "trimmed_s1.txt", series.Name)
		})
	}
}

func TestReadTrimmedSeries_Values(t *testing.T) {
	series, err := ReadTrimmedSeries(strings.NewReader("1e5\t0.5\t-0.125\n"), "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1e5}, series.Frequency)
	assert.Equal(t, []float64{0.5}, series.ZReal)
	assert.Equal(t, []float64{-0.125}, series.ZImag)
}

func TestReadDRTResult(t *testing.T) {
	t.Run("columns read positionally", func(t *testing.T) {
		content := "relaxation,distribution,extra\n0.001,1.5,x\n0.01,2.5,y\n"
		result, err := ReadDRTResult(strings.NewReader(content), "sample1")
		require.NoError(t, err)
		assert.Equal(t, []float64{0.001, 0.01}, result.Tau)
		assert.Equal(t, []float64{1.5, 2.5}, result.Gamma)
		assert.Equal(t, "sample1", result.Name)
	})

	t.Run("header only", func(t *testing.T) {
		result, err := ReadDRTResult(strings.NewReader("tau,gamma\n"), "s")
		require.NoError(t, err)
		assert.Equal(t, 0, result.Len())
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ReadDRTResult(strings.NewReader(""), "s")
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	})

	t.Run("malformed row", func(t *testing.T) {
		_, err := ReadDRTResult(strings.NewReader("tau,gamma\n0.1\n"), "s")
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	})
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "trimmed_sample1.txt", TrimmedFileName("sample1.txt", "trimmed_"))
	assert.Equal(t, "DRT_sample1.txt", DRTFileName("trimmed_sample1.txt", "trimmed_", "DRT_"))
	// Only the leading marker is replaced
	assert.Equal(t, "DRT_cell_trimmed_2.txt", DRTFileName("trimmed_cell_trimmed_2.txt", "trimmed_", "DRT_"))
}
