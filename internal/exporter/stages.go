package exporter

import (
	"drtbatch/pkg/contracts/domain"
)

// DRTResultHeaders is the header row of a DRT result file
var DRTResultHeaders = []string{"tau", "gamma"}

// WriteTrimmedSeries writes a header-less, tab-delimited (frequency, Z', Z'')
// file. Identical series always produce identical bytes.
func (w *CSVWriter) WriteTrimmedSeries(path string, series domain.TrimmedSeries) error {
	return w.WriteCSV(path, WriteOptions{
		Records:   floatRecords(series.Rows()),
		Delimiter: '\t',
	})
}

// WriteDRTResult writes a "tau,gamma" CSV
func (w *CSVWriter) WriteDRTResult(path string, result domain.DRTResult) error {
	rows := make([][]float64, len(result.Tau))
	for i := range rows {
		rows[i] = []float64{result.Tau[i], result.Gamma[i]}
	}
	return w.WriteCSV(path, WriteOptions{
		Headers: DRTResultHeaders,
		Records: floatRecords(rows),
	})
}

// WriteMatrix writes the master matrix CSV with header "Tau,<labels...>"
func (w *CSVWriter) WriteMatrix(path string, matrix *domain.MasterMatrix) error {
	return w.WriteCSV(path, WriteOptions{
		Headers: matrix.Header(),
		Records: matrix.Records(),
	})
}
