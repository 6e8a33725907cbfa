package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"bee-console/internal/dispatch"
	"bee-console/internal/status"
)

var commandColumns = []string{"IMEI", "Command", "Status", "Response", "Timestamp"}

var statusColumns = []string{
	"IMEI", "Sent Command", "Status", "Message",
	"Created", "Updated", "Requested By", "Device Type", "Bee Number",
}

// BuildCommandResultsXLSX renders dispatch rows as a single-sheet workbook,
// one row per result in input order.
func BuildCommandResultsXLSX(results []dispatch.Result) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Results"
	f.SetSheetName("Sheet1", sheet)

	for col, name := range commandColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}
	for i, result := range results {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), result.IMEI)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), result.Command)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), result.Status)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), result.Detail)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), result.Timestamp)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStatusResultsXLSX renders reconciliation rows as a single-sheet
// workbook, one row per result in input order.
func BuildStatusResultsXLSX(results []status.Result) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Status"
	f.SetSheetName("Sheet1", sheet)

	for col, name := range statusColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}
	for i, result := range results {
		row := i + 2
		values := []string{
			result.IMEI, result.SentCommand, result.Status, result.Message,
			result.Created, result.Updated, result.RequestedBy, result.DeviceType, result.BeeNumber,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CommandResultsFilename names a command export after its generation time.
func CommandResultsFilename(at time.Time) string {
	return "command_results_" + at.Format("20060102_150405") + ".xlsx"
}

// StatusResultsFilename names a status export after its generation time.
func StatusResultsFilename(at time.Time) string {
	return "status_results_" + at.Format("20060102_150405") + ".xlsx"
}

// StatusResultsPDFFilename names a status PDF export after its generation time.
func StatusResultsPDFFilename(at time.Time) string {
	return "status_results_" + at.Format("20060102_150405") + ".pdf"
}
