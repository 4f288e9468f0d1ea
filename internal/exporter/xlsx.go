package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"drtbatch/pkg/contracts/domain"
)

// MatrixSheetName is the worksheet holding the master matrix
const MatrixSheetName = "DRT Matrix"

// EncodeMatrixWorkbook renders the matrix as an XLSX workbook with numeric cells
func EncodeMatrixWorkbook(matrix *domain.MasterMatrix) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), MatrixSheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, 0, len(matrix.Labels)+1)
	for _, h := range matrix.Header() {
		header = append(header, h)
	}
	if err := f.SetSheetRow(MatrixSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < matrix.Rows(); i++ {
		row := make([]interface{}, 0, len(matrix.Columns)+1)
		row = append(row, matrix.Tau[i])
		for _, col := range matrix.Columns {
			row = append(row, col[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(MatrixSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(MatrixSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMatrixWorkbook writes the matrix workbook to path atomically
func (w *CSVWriter) WriteMatrixWorkbook(path string, matrix *domain.MasterMatrix) error {
	data, err := EncodeMatrixWorkbook(matrix)
	if err != nil {
		return err
	}
	return w.files.WriteFileAtomic(path, data)
}
