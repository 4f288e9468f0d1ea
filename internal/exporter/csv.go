package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"

	"drtbatch/internal/files"
)

// CSVWriter provides delimited-text export. Every file is written
// atomically so an interrupted run never leaves a half-written output.
type CSVWriter struct {
	files  *files.Manager
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(manager *files.Manager, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if manager == nil {
		manager = files.NewManager(logger)
	}
	return &CSVWriter{files: manager, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Delimiter rune // defaults to ','
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Encode renders options as delimited text with "\n" line endings
func Encode(options WriteOptions) ([]byte, error) {
	var buf bytes.Buffer

	if options.BOMPrefix {
		buf.Write([]byte{0xEF, 0xBB, 0xBF})
	}

	writer := csv.NewWriter(&buf)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes data to filePath with the given options, replacing any
// existing file
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	data, err := Encode(options)
	if err != nil {
		return err
	}

	if err := w.files.WriteFileAtomic(filePath, data); err != nil {
		return err
	}

	w.logger.Debug("csv_written",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))
	return nil
}
