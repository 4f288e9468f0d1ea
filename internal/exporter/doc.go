// Package exporter writes the pipeline's output files.
//
// CSVWriter renders delimited text with encoding/csv and hands the bytes to
// files.Manager.WriteFileAtomic. Stage helpers fix the formats:
//
//	WriteTrimmedSeries   header-less, tab-delimited frequency, Z', Z''
//	WriteDRTResult       CSV with header tau,gamma
//	WriteMatrix          CSV with header Tau,<labels...>
//
// The master matrix can also be exported as an XLSX workbook (excelize) and a
// PNG plot of gamma against log tau (gonum/plot).
package exporter
