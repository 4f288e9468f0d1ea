package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "drtbatch/internal/errors"
	"drtbatch/pkg/contracts/domain"
)

// ReadTrimmedSeries parses a header-less, tab-delimited trimmed file. The
// first three columns are read positionally as frequency, Z' and Z''.
func ReadTrimmedSeries(r io.Reader, name string) (domain.TrimmedSeries, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	series := domain.TrimmedSeries{Name: name}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return domain.TrimmedSeries{}, lineError(name, line, err)
		}
		values, err := parseColumns(record, 3)
		if err != nil {
			return domain.TrimmedSeries{}, lineError(name, line, err)
		}
		series.Frequency = append(series.Frequency, values[0])
		series.ZReal = append(series.ZReal, values[1])
		series.ZImag = append(series.ZImag, values[2])
	}

	if err := series.Validate(); err != nil {
		return domain.TrimmedSeries{}, apperrors.NewValidationError(err.Error())
	}
	return series, nil
}

// ReadDRTResult parses a DRT result CSV. The header row is skipped and
// columns 0 and 1 are read positionally as tau and gamma; column names are
// not trusted.
func ReadDRTResult(r io.Reader, name string) (domain.DRTResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := domain.DRTResult{Name: name}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return domain.DRTResult{}, lineError(name, line, err)
		}
		if line == 1 {
			continue
		}
		values, err := parseColumns(record, 2)
		if err != nil {
			return domain.DRTResult{}, lineError(name, line, err)
		}
		result.Tau = append(result.Tau, values[0])
		result.Gamma = append(result.Gamma, values[1])
	}

	if line == 0 {
		return domain.DRTResult{}, apperrors.NewParsingError(fmt.Sprintf("%s: empty file", name), nil)
	}
	return result, nil
}

// parseColumns parses the first n fields of record as floats
func parseColumns(record []string, n int) ([]float64, error) {
	if len(record) < n {
		return nil, fmt.Errorf("expected at least %d columns, got %d", n, len(record))
	}
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// lineError reports a malformed line of a stage file
func lineError(name string, line int, err error) error {
	return apperrors.NewParsingError(fmt.Sprintf("%s: line %d", name, line), err).WithContext("line", line)
}

// TrimmedFileName names the trimmed output of a raw file
func TrimmedFileName(rawName, prefix string) string {
	return prefix + rawName
}

// DRTFileName names the DRT output of a trimmed file by swapping the
// trimmed prefix for the DRT prefix
func DRTFileName(trimmedName, trimmedPrefix, drtPrefix string) string {
	return drtPrefix + strings.TrimPrefix(trimmedName, trimmedPrefix)
}
