package reports

import (
	"fmt"
	"strings"
)

// ExportFormat represents supported export formats
type ExportFormat string

const (
	ExportFormatCSV   ExportFormat = "csv"
	ExportFormatExcel ExportFormat = "xlsx"
	ExportFormatPDF   ExportFormat = "pdf"
)

// ParseFormat accepts a format token. "excel" is an alias for xlsx and an
// empty token selects CSV.
func ParseFormat(token string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "csv":
		return ExportFormatCSV, nil
	case "xlsx", "excel":
		return ExportFormatExcel, nil
	case "pdf":
		return ExportFormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", token)
	}
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// Extension returns the file extension of the format, with the dot.
func (f ExportFormat) Extension() string {
	return "." + string(f)
}
