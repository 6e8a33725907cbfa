package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"bee-console/internal/imei"
)

// ErrUnsupportedType is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedType = errors.New("sheet: unsupported file type, upload .csv or .xlsx")

// ErrBadFormat is returned when a file with a supported extension cannot be
// read as that format.
var ErrBadFormat = errors.New("sheet: unreadable file")

// ErrNoIMEIColumn is returned when no column can be identified as holding
// device identifiers.
var ErrNoIMEIColumn = errors.New("sheet: no IMEI column found")

// ParseIdentifiers extracts the raw identifier cells from an uploaded
// spreadsheet. The column is picked by a case-insensitive "imei" header; a
// headerless file whose first cell already normalizes as an identifier is
// read column-first instead.
func ParseIdentifiers(filename string, r io.Reader) ([]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(r)
	case ".xlsx", ".xls":
		return parseXLSX(r)
	default:
		return nil, ErrUnsupportedType
	}
}

func parseCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return pickColumn(rows)
}

func parseXLSX(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoIMEIColumn
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return pickColumn(rows)
}

func pickColumn(rows [][]string) ([]string, error) {
	if len(rows) == 0 {
		return nil, ErrNoIMEIColumn
	}

	// Any header containing "imei" qualifies ("IMEI Number", "Device IMEI");
	// the first such column wins.
	header := rows[0]
	for col, name := range header {
		if strings.Contains(strings.ToLower(stripBOM(name)), "imei") {
			return columnValues(rows[1:], col), nil
		}
	}

	// Headerless files start with data in the first cell.
	if len(header) > 0 {
		if _, ok := imei.Normalize(stripBOM(header[0])); ok {
			return columnValues(rows, 0), nil
		}
	}
	return nil, ErrNoIMEIColumn
}

func columnValues(rows [][]string, col int) []string {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		value := strings.TrimSpace(stripBOM(row[col]))
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}

// stripBOM drops a UTF-8 byte order mark that Excel prepends to CSV exports.
func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
