package files

import (
	"sort"
	"strings"
)

// SortKey orders filenames the way a person reads numbered samples:
// names containing digits come first, ordered by their digit runs taken as
// integers, then by lower-cased name. Names without digits follow, ordered
// by lower-cased name.
type SortKey struct {
	Group  int
	Digits []string // digit runs with leading zeros stripped
	Lower  string
}

// NumericKey builds the SortKey of name
func NumericKey(name string) SortKey {
	runs := digitRuns(name)
	key := SortKey{Lower: strings.ToLower(name)}
	if len(runs) == 0 {
		key.Group = 1
		return key
	}
	key.Digits = runs
	return key
}

// Compare returns -1, 0 or +1 when k sorts before, equal to or after other
func (k SortKey) Compare(other SortKey) int {
	if k.Group != other.Group {
		if k.Group < other.Group {
			return -1
		}
		return 1
	}

	for i := 0; i < len(k.Digits) && i < len(other.Digits); i++ {
		if c := compareDigits(k.Digits[i], other.Digits[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k.Digits) < len(other.Digits):
		return -1
	case len(k.Digits) > len(other.Digits):
		return 1
	}

	return strings.Compare(k.Lower, other.Lower)
}

// SortNumeric sorts names in place by NumericKey. Names with equal keys keep
// their relative order.
func SortNumeric(names []string) {
	keys := make(map[string]SortKey, len(names))
	for _, name := range names {
		keys[name] = NumericKey(name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return keys[names[i]].Compare(keys[names[j]]) < 0
	})
}

// digitRuns returns the maximal runs of ASCII digits in s, each normalized
// by stripping leading zeros so that equal integers compare equal.
func digitRuns(s string) []string {
	var runs []string
	start := -1
	for i := 0; i <= len(s); i++ {
		isDigit := i < len(s) && s[i] >= '0' && s[i] <= '9'
		switch {
		case isDigit && start < 0:
			start = i
		case !isDigit && start >= 0:
			run := strings.TrimLeft(s[start:i], "0")
			if run == "" {
				run = "0"
			}
			runs = append(runs, run)
			start = -1
		}
	}
	return runs
}

// compareDigits compares two normalized digit runs by integer value.
// Runs of any length are supported.
func compareDigits(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
