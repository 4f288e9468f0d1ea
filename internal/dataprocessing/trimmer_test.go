package dataprocessing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeaderLines = 18

// rawExport builds an instrument export: a metadata block of testHeaderLines
// lines followed by the given data lines.
func rawExport(lines ...string) []byte {
	var b strings.Builder
	for i := 0; i < testHeaderLines; i++ {
		fmt.Fprintf(&b, "Header line %d: Instrument Model 660E, 1, 2\n", i+1)
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func TestTrimRaw_ColumnNormalization(t *testing.T) {
	tests := []struct {
		name      string
		lines     []string
		wantErr   error
		wantFreq  []float64
		wantZReal []float64
		wantZImag []float64
		wantCols  int
	}{
		{
			name: "five columns drop indices 3 and 4",
			lines: []string{
				"1000, 10.5, -2.25, 99, 45",
				"100, 11, -3.5, 98, 44",
			},
			wantFreq:  []float64{1000, 100},
			wantZReal: []float64{10.5, 11},
			wantZImag: []float64{-2.25, -3.5},
			wantCols:  5,
		},
		{
			name: "four columns drop index 3",
			lines: []string{
				"1000\t10.5\t-2.25\t7",
				"100\t11\t-3.5\t8",
			},
			wantFreq:  []float64{1000, 100},
			wantZReal: []float64{10.5, 11},
			wantZImag: []float64{-2.25, -3.5},
			wantCols:  4,
		},
		{
			name: "three columns kept as is",
			lines: []string{
				"1e5 1.5 -0.5",
				"1e4 2.5 -0.75",
			},
			wantFreq:  []float64{1e5, 1e4},
			wantZReal: []float64{1.5, 2.5},
			wantZImag: []float64{-0.5, -0.75},
			wantCols:  3,
		},
		{
			name: "six columns keep first three after dropping",
			lines: []string{
				"1;2;3;4;5;6",
			},
			wantFreq:  []float64{1},
			wantZReal: []float64{2},
			wantZImag: []float64{3},
			wantCols:  6,
		},
		{
			name: "two columns rejected",
			lines: []string{
				"1000,10.5",
				"100,11",
			},
			wantErr: ErrTooFewColumns,
		},
		{
			name:    "no numeric rows rejected",
			lines:   []string{"Freq/Hz, Z'/ohm, Z''/ohm", "end of file"},
			wantErr: ErrNoRows,
		},
		{
			name:    "header only rejected",
			lines:   nil,
			wantErr: ErrNoRows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, stats, err := TrimRaw("sample.txt", rawExport(tt.lines...), testHeaderLines)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsRejection(err))
				return
			}

			require.NoError(t, err)
			require.NoError(t, series.Validate())
			assert.Equal(t, "sample.txt", series.Name)
			assert.Equal(t, tt.wantFreq, series.Frequency)
			assert.Equal(t, tt.wantZReal, series.ZReal)
			assert.Equal(t, tt.wantZImag, series.ZImag)
			assert.Equal(t, tt.wantCols, stats.RawColumns)
		})
	}
}

func TestTrimRaw_DelimitersAgree(t *testing.T) {
	variants := map[string][]string{
		"comma":      {"1000, 10.5, -2.25, 99, 45", "100, 11, -3.5, 98, 44"},
		"semicolon":  {"1000;10.5;-2.25;99;45", "100;11;-3.5;98;44"},
		"tab":        {"1000\t10.5\t-2.25\t99\t45", "100\t11\t-3.5\t98\t44"},
		"pipe":       {"1000|10.5|-2.25|99|45", "100|11|-3.5|98|44"},
		"whitespace": {"1000   10.5  -2.25 99  45", "100 11    -3.5 98 44"},
	}

	var reference []float64
	for name, lines := range variants {
		t.Run(name, func(t *testing.T) {
			series, _, err := TrimRaw("s.txt", rawExport(lines...), testHeaderLines)
			require.NoError(t, err)

			flat := append(append(append([]float64{}, series.Frequency...), series.ZReal...), series.ZImag...)
			if reference == nil {
				reference = flat
			}
			assert.Equal(t, reference, flat)
		})
	}
}

func TestTrimRaw_DropsMalformedRows(t *testing.T) {
	data := rawExport(
		"Freq/Hz, Z'/ohm, Z''/ohm, Z/ohm, Phase/deg",
		"1000, 10.5, -2.25, 99, 45",
		"100, 11, n/a, 98, 44",
		"10, 12, -4.5, 97, 43",
		"1, 13, -5.5, 96",
	)

	series, stats, err := TrimRaw("s.txt", data, testHeaderLines)
	require.NoError(t, err)

	assert.Equal(t, []float64{1000, 10}, series.Frequency)
	assert.Equal(t, 2, stats.RowsKept)
	assert.Equal(t, 3, stats.RowsDropped)
}

func TestTrimRaw_SkipsExactlyTheHeader(t *testing.T) {
	// The 18th line is numeric but belongs to the header block
	var b strings.Builder
	for i := 0; i < testHeaderLines-1; i++ {
		b.WriteString("meta\n")
	}
	b.WriteString("9 9 9\n")
	b.WriteString("1 2 3\n")

	series, _, err := TrimRaw("s.txt", []byte(b.String()), testHeaderLines)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, series.Frequency)
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name   string
		lines  []string
		want   rune
		wantOK bool
	}{
		{"comma", []string{"1,2,3", "4,5,6"}, ',', true},
		{"semicolon", []string{"1;2;3", "4;5;6"}, ';', true},
		{"tab", []string{"1\t2\t3"}, '\t', true},
		{"comma on majority of lines", []string{"1,2,3", "4,5,6", "x"}, ',', true},
		{"no majority count", []string{"1,2,3", "4,5", "6"}, 0, false},
		{"whitespace only", []string{"1 2 3", "4 5 6"}, 0, false},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectDelimiter(tt.lines)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRawLines(t *testing.T) {
	table, err := ParseRawLines([]string{"1.5;2;3", "4;5;6", "bad;row"})
	require.NoError(t, err)
	assert.Equal(t, ";", table.Delimiter)
	assert.Equal(t, 3, table.Width)
	assert.Len(t, table.Rows, 2)
	assert.Equal(t, 1, table.Dropped)

	// Trailing delimiter does not add an empty field
	table, err = ParseRawLines([]string{"1,2,3,", "4,5,6,"})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Width)

	// Decimal commas cannot be parsed by any splitter
	_, err = ParseRawLines([]string{"1,5;2,5;3,5", "4,5;5,5;6,5"})
	assert.ErrorIs(t, err, ErrNoRows)

	// Non-finite values are malformed
	_, err = ParseRawLines([]string{"NaN 1 2", "Inf 1 2"})
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestNormalizeColumns(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, NormalizeColumns(3))
	assert.Equal(t, []int{0, 1, 2}, NormalizeColumns(4))
	assert.Equal(t, []int{0, 1, 2}, NormalizeColumns(5))
	assert.Equal(t, []int{0, 1, 2, 5, 6}, NormalizeColumns(7))
	assert.Equal(t, []int{0, 1}, NormalizeColumns(2))
	assert.Empty(t, NormalizeColumns(0))
}
