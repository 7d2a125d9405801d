package export

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

const excelSheet = "Sheet1"

// ExcelExporter appends flattened rows to an .xlsx workbook, creating the
// file with a header row on first use.
type ExcelExporter struct {
	path string
}

// NewExcelExporter creates an exporter writing to path.
func NewExcelExporter(path string) *ExcelExporter {
	return &ExcelExporter{path: path}
}

// Export appends one row per flattened key to the workbook.
func (e *ExcelExporter) Export(results domain.RunResult) error {
	f, next, err := e.open()
	if err != nil {
		return err
	}
	defer f.Close()

	for i, row := range Flatten(results) {
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return fmt.Errorf("failed to compute cell: %w", err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(excelSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to set row: %w", err)
		}
	}

	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// open returns the workbook and the 1-based index of the next free row.
func (e *ExcelExporter) open() (*excelize.File, int, error) {
	if _, err := os.Stat(e.path); os.IsNotExist(err) {
		f := excelize.NewFile()
		header := make([]interface{}, len(Header))
		for i, h := range Header {
			header[i] = h
		}
		if err := f.SetSheetRow(excelSheet, "A1", &header); err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("failed to write header: %w", err)
		}
		return f, 2, nil
	}

	f, err := excelize.OpenFile(e.path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	rows, err := f.GetRows(excelSheet)
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to read sheet: %w", err)
	}
	return f, len(rows) + 1, nil
}
