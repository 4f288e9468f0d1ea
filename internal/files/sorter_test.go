package files

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "numbered before unnumbered",
			input: []string{"f10.txt", "f2.txt", "f1.txt", "abc.txt"},
			want:  []string{"f1.txt", "f2.txt", "f10.txt", "abc.txt"},
		},
		{
			name:  "samples",
			input: []string{"sample10.txt", "sample1.txt", "sample2.txt"},
			want:  []string{"sample1.txt", "sample2.txt", "sample10.txt"},
		},
		{
			name:  "multiple digit runs",
			input: []string{"run2_cell10.txt", "run10_cell1.txt", "run2_cell3.txt"},
			want:  []string{"run2_cell3.txt", "run2_cell10.txt", "run10_cell1.txt"},
		},
		{
			name:  "shorter digit sequence first",
			input: []string{"a1_2.txt", "a1.txt"},
			want:  []string{"a1.txt", "a1_2.txt"},
		},
		{
			name:  "equal numbers tie-break on lower-cased name",
			input: []string{"b1.txt", "A1.txt", "a01.txt"},
			want:  []string{"a01.txt", "A1.txt", "b1.txt"},
		},
		{
			name:  "unnumbered sorted case-insensitively",
			input: []string{"Zeta.txt", "alpha.txt", "Beta.txt"},
			want:  []string{"alpha.txt", "Beta.txt", "Zeta.txt"},
		},
		{
			name:  "integers wider than 64 bits",
			input: []string{"x123456789012345678901234567890.txt", "x99999999999999999999.txt", "x5.txt"},
			want:  []string{"x5.txt", "x99999999999999999999.txt", "x123456789012345678901234567890.txt"},
		},
		{
			name:  "leading zeros",
			input: []string{"s010.txt", "s9.txt", "s0.txt", "s000.txt"},
			want:  []string{"s0.txt", "s000.txt", "s9.txt", "s010.txt"},
		},
		{
			name:  "empty",
			input: []string{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := append([]string(nil), tt.input...)
			if got == nil {
				got = []string{}
			}
			SortNumeric(got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortNumericStable(t *testing.T) {
	// Identical names have identical keys and keep their input order
	names := []string{"same1.txt", "other.txt", "same1.txt"}
	SortNumeric(names)
	assert.Equal(t, []string{"same1.txt", "same1.txt", "other.txt"}, names)
}

func TestNumericKey(t *testing.T) {
	key := NumericKey("Cell007_T25.TXT")
	assert.Equal(t, 0, key.Group)
	assert.Equal(t, []string{"7", "25"}, key.Digits)
	assert.Equal(t, "cell007_t25.txt", key.Lower)

	key = NumericKey("README")
	assert.Equal(t, 1, key.Group)
	assert.Empty(t, key.Digits)
}

func TestSortKeyCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"f2", "f10", -1},
		{"f10", "f2", 1},
		{"f1", "abc", -1},
		{"abc", "f1", 1},
		{"F1", "f1", 0},
		{"a1_2", "a1", 1},
		{"abc", "abd", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, NumericKey(tt.a).Compare(NumericKey(tt.b)))
		})
	}
}
