package exporter

import (
	"drtbatch/pkg/contracts/domain"
)

// formatFloat renders the shortest representation that parses back exactly
func formatFloat(f float64) string {
	return domain.FormatFloat(f)
}

// floatRecords formats numeric rows for a CSV writer
func floatRecords(rows [][]float64) [][]string {
	records := make([][]string, len(rows))
	for i, row := range rows {
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = formatFloat(v)
		}
		records[i] = record
	}
	return records
}
