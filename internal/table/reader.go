package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Read loads a table from path, dispatching on the file extension.
// CSV, XLSX and XLSM are supported.
func Read(name, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(name, path)
	case ".xlsx", ".xlsm":
		return ReadXLSX(name, path)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV loads a table from a CSV file. The first record is the header
// row; short records are padded with nulls so a ragged file still loads.
func ReadCSV(name, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	t, err := ReadCSVFrom(name, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ReadCSVFrom loads a table from an io.Reader containing CSV data.
func ReadCSVFrom(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	t, err := New(name, header)
	if err != nil {
		return nil, err
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := t.AppendRow(padCells(record, t.NumCols())); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return t, nil
}

// ReadXLSX loads a table from the first sheet of a workbook.
func ReadXLSX(name, path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: sheet %s is empty", path, sheets[0])
	}

	t, err := New(name, rows[0])
	if err != nil {
		return nil, err
	}
	for i, row := range rows[1:] {
		if err := t.AppendRow(padCells(row, t.NumCols())); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return t, nil
}

// padCells types raw source strings and pads or truncates to width.
func padCells(record []string, width int) []any {
	cells := make([]any, width)
	for i := 0; i < width; i++ {
		if i < len(record) {
			cells[i] = inferCell(record[i])
		}
	}
	return cells
}
