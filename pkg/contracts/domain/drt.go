package domain

import (
	"fmt"
	"strconv"
)

// TrimmedSeries is one impedance sweep reduced to the three canonical columns.
// It is derived from exactly one raw instrument export and never mutated afterwards.
type TrimmedSeries struct {
	Name      string    `json:"name"`
	Frequency []float64 `json:"frequency"` // Hz
	ZReal     []float64 `json:"z_real"`    // Z', ohm
	ZImag     []float64 `json:"z_imag"`    // Z'', ohm
}

// Len returns the number of samples in the series
func (s *TrimmedSeries) Len() int {
	return len(s.Frequency)
}

// Validate checks that all three columns have the same, non-zero length
func (s *TrimmedSeries) Validate() error {
	n := len(s.Frequency)
	if n == 0 {
		return fmt.Errorf("series %q is empty", s.Name)
	}
	if len(s.ZReal) != n || len(s.ZImag) != n {
		return fmt.Errorf("series %q has unequal columns: frequency=%d z_real=%d z_imag=%d",
			s.Name, n, len(s.ZReal), len(s.ZImag))
	}
	return nil
}

// Rows returns the series as header-less rows of (frequency, Z', Z'')
func (s *TrimmedSeries) Rows() [][]float64 {
	rows := make([][]float64, s.Len())
	for i := range rows {
		rows[i] = []float64{s.Frequency[i], s.ZReal[i], s.ZImag[i]}
	}
	return rows
}

// DRTResult is the relaxation-time distribution computed from one TrimmedSeries
type DRTResult struct {
	Name  string    `json:"name"`
	Tau   []float64 `json:"tau"`
	Gamma []float64 `json:"gamma"`
}

// Len returns the number of (tau, gamma) samples
func (r *DRTResult) Len() int {
	return len(r.Gamma)
}

// Validate checks that tau and gamma have equal length
func (r *DRTResult) Validate() error {
	if len(r.Tau) != len(r.Gamma) {
		return fmt.Errorf("result %q has unequal columns: tau=%d gamma=%d", r.Name, len(r.Tau), len(r.Gamma))
	}
	return nil
}

// MasterMatrixTauHeader is the label of the shared tau axis column
const MasterMatrixTauHeader = "Tau"

// MasterMatrix aligns every DRT result on a single tau axis.
// All columns share the same row count as Tau.
type MasterMatrix struct {
	Tau     []float64   `json:"tau"`
	Labels  []string    `json:"labels"`
	Columns [][]float64 `json:"columns"`
}

// Rows returns the number of aligned samples
func (m *MasterMatrix) Rows() int {
	return len(m.Tau)
}

// Header returns the CSV header: "Tau" followed by one label per gamma column
func (m *MasterMatrix) Header() []string {
	header := make([]string, 0, len(m.Labels)+1)
	header = append(header, MasterMatrixTauHeader)
	return append(header, m.Labels...)
}

// Records renders the matrix as string rows suitable for a CSV writer
func (m *MasterMatrix) Records() [][]string {
	records := make([][]string, m.Rows())
	for i := range records {
		row := make([]string, 0, len(m.Columns)+1)
		row = append(row, FormatFloat(m.Tau[i]))
		for _, col := range m.Columns {
			row = append(row, FormatFloat(col[i]))
		}
		records[i] = row
	}
	return records
}

// Column returns the gamma column with the given label
func (m *MasterMatrix) Column(label string) ([]float64, bool) {
	for i, l := range m.Labels {
		if l == label {
			return m.Columns[i], true
		}
	}
	return nil, false
}

// FormatFloat renders a value with the shortest representation that parses back exactly
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
