package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"bee-console/internal/status"
)

var statusPDFWidths = []float64{28, 42, 26, 44, 30, 30, 28, 24, 25}

// BuildStatusResultsPDF renders a landscape status report: a counters summary
// followed by one table row per result.
func BuildStatusResultsPDF(results []status.Result, counters status.Counters, window string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Command Status Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if window != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Window: %s", window))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Devices checked: %d", counters.Total()))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Summary")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	summary := []struct {
		label string
		count int
	}{
		{"Completed", counters.Completed},
		{"Pending", counters.Pending},
		{"Sent", counters.Sent},
		{"Acknowledged", counters.Acknowledged},
		{"Failed", counters.Failed},
		{"Not Found", counters.NotFound},
	}
	for _, line := range summary {
		pdf.CellFormat(50, 6, line.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", line.count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 8)
	for i, name := range statusColumns {
		pdf.CellFormat(statusPDFWidths[i], 6, name, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 7)
	for _, result := range results {
		values := []string{
			result.IMEI, result.SentCommand, result.Status, result.Message,
			result.Created, result.Updated, result.RequestedBy, result.DeviceType, result.BeeNumber,
		}
		for i, value := range values {
			pdf.CellFormat(statusPDFWidths[i], 6, clip(value, 34), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// clip bounds a cell's text so long messages cannot overflow the row.
// Truncation happens on rune boundaries; error messages may carry multi-byte
// characters.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
