package dataprocessing

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"drtbatch/pkg/contracts/domain"
)

// delimiterCandidates are tried in order during auto-detection
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// detectionSampleSize bounds the number of data lines inspected by DetectDelimiter
const detectionSampleSize = 20

var (
	// ErrNoRows is returned when no numeric row survives parsing
	ErrNoRows = errors.New("no parseable numeric rows")
	// ErrTooFewColumns is returned when fewer than three columns remain after normalization
	ErrTooFewColumns = errors.New("not enough columns for frequency, Z' and Z''")
)

// RawTable is the numeric body of a raw instrument export
type RawTable struct {
	Width     int
	Rows      [][]float64
	Delimiter string // "whitespace" when the fallback splitter was used
	Dropped   int    // rows skipped as malformed
}

// TrimStats reports what happened to one raw file
type TrimStats struct {
	Delimiter   string
	RawColumns  int
	RowsKept    int
	RowsDropped int
}

// ReadDataLines returns the lines of r after skipping headerLines leading
// lines. Blank lines are discarded.
func ReadDataLines(r io.Reader, headerLines int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	n := 0
	for scanner.Scan() {
		n++
		if n <= headerLines {
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lines: %w", err)
	}
	return lines, nil
}

// DetectDelimiter returns the first candidate delimiter that occurs with the
// same non-zero count on a majority of sampled lines. ok is false when no
// candidate qualifies.
func DetectDelimiter(lines []string) (delim rune, ok bool) {
	candidates := consistentDelimiters(lines)
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[0], true
}

// consistentDelimiters lists, in candidate order, every delimiter whose
// most common non-zero count covers more than half of the sample
func consistentDelimiters(lines []string) []rune {
	sample := lines
	if len(sample) > detectionSampleSize {
		sample = sample[:detectionSampleSize]
	}
	if len(sample) == 0 {
		return nil
	}

	var found []rune
	for _, candidate := range delimiterCandidates {
		counts := make(map[int]int)
		for _, line := range sample {
			if n := strings.Count(line, string(candidate)); n > 0 {
				counts[n]++
			}
		}
		best := 0
		for _, occurrences := range counts {
			best = max(best, occurrences)
		}
		if best*2 > len(sample) {
			found = append(found, candidate)
		}
	}
	return found
}

// ParseRawLines parses data lines into a numeric table. Consistent
// delimiters are tried in candidate order; whitespace splitting is used when
// none is detected or none yields a numeric row.
func ParseRawLines(lines []string) (*RawTable, error) {
	for _, delim := range consistentDelimiters(lines) {
		sep := string(delim)
		split := func(line string) []string {
			return strings.Split(strings.TrimSuffix(line, sep), sep)
		}
		table := parseRows(lines, split)
		if len(table.Rows) > 0 {
			table.Delimiter = sep
			return table, nil
		}
	}

	table := parseRows(lines, strings.Fields)
	if len(table.Rows) == 0 {
		return nil, ErrNoRows
	}
	table.Delimiter = "whitespace"
	return table, nil
}

// parseRows keeps the rows whose fields are all finite numbers and whose
// width matches the first such row.
func parseRows(lines []string, split func(string) []string) *RawTable {
	table := &RawTable{}
	for _, line := range lines {
		row, ok := parseNumericFields(split(line))
		if !ok {
			table.Dropped++
			continue
		}
		if table.Width == 0 {
			table.Width = len(row)
		}
		if len(row) != table.Width {
			table.Dropped++
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func parseNumericFields(fields []string) ([]float64, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	row := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		row[i] = v
	}
	return row, true
}

// NormalizeColumns returns the column indices kept from a table of the
// given width. Exports with five or more columns carry two instrument
// columns at indices 3 and 4; four-column exports carry one at index 3.
func NormalizeColumns(width int) []int {
	var keep []int
	for i := 0; i < width; i++ {
		switch {
		case width >= 5 && (i == 3 || i == 4):
			continue
		case width == 4 && i == 3:
			continue
		}
		keep = append(keep, i)
	}
	return keep
}

// TrimRaw turns the content of one raw export into a trimmed series.
// ErrNoRows and ErrTooFewColumns mark files that cannot hold impedance data.
func TrimRaw(name string, data []byte, headerLines int) (domain.TrimmedSeries, TrimStats, error) {
	lines, err := ReadDataLines(bytes.NewReader(data), headerLines)
	if err != nil {
		return domain.TrimmedSeries{}, TrimStats{}, err
	}

	table, err := ParseRawLines(lines)
	if err != nil {
		return domain.TrimmedSeries{}, TrimStats{RowsDropped: len(lines)}, err
	}

	stats := TrimStats{
		Delimiter:   table.Delimiter,
		RawColumns:  table.Width,
		RowsKept:    len(table.Rows),
		RowsDropped: table.Dropped,
	}

	keep := NormalizeColumns(table.Width)
	if len(keep) < 3 {
		return domain.TrimmedSeries{}, stats, ErrTooFewColumns
	}

	series := domain.TrimmedSeries{
		Name:      name,
		Frequency: make([]float64, len(table.Rows)),
		ZReal:     make([]float64, len(table.Rows)),
		ZImag:     make([]float64, len(table.Rows)),
	}
	for i, row := range table.Rows {
		series.Frequency[i] = row[keep[0]]
		series.ZReal[i] = row[keep[1]]
		series.ZImag[i] = row[keep[2]]
	}
	return series, stats, nil
}

// IsRejection reports whether err marks a file that was rejected rather
// than one that failed
func IsRejection(err error) bool {
	return errors.Is(err, ErrNoRows) || errors.Is(err, ErrTooFewColumns)
}
