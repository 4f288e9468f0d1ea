// Package dataprocessing holds the pure transformations of the DRT pipeline.
//
// # Trimming
//
// TrimRaw skips the metadata block of an instrument export, detects the
// delimiter of the numeric body and keeps the frequency, Z' and Z'' columns:
//
//	series, stats, err := dataprocessing.TrimRaw(name, data, config.RawHeaderLines)
//	if dataprocessing.IsRejection(err) {
//	    // file cannot hold impedance data
//	}
//
// # Reading stage outputs
//
// ReadTrimmedSeries and ReadDRTResult parse the files written by the trim and
// DRT stages. Both read columns positionally.
//
// # Aggregation
//
// Aggregate aligns DRT results on the tau axis of the first result with
// tail truncation, so the row count is the minimum length seen:
//
//	matrix, err := dataprocessing.Aggregate(results)
//	if errors.Is(err, dataprocessing.ErrNoResults) {
//	    // nothing to write
//	}
package dataprocessing
