package extract

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// ExtractWorkbook reads a spreadsheet at path and returns its sheets as
// column-headed row data. A sheet whose rows cannot be read is skipped and
// recorded in Workbook.SkippedSheets; only a file that cannot be opened at
// all is an error.
func (e *Extractor) ExtractWorkbook(path string) (*models.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

// ExtractWorkbookBytes is ExtractWorkbook over in-memory content.
func (e *Extractor) ExtractWorkbookBytes(content []byte) (*models.Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (*models.Workbook, error) {
	wb := &models.Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			wb.SkippedSheets = append(wb.SkippedSheets, name)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		sheet := models.Sheet{Name: name, Columns: rows[0]}
		for _, row := range rows[1:] {
			// GetRows trims trailing empty cells; pad so cells align with columns.
			if len(row) < len(sheet.Columns) {
				padded := make([]string, len(sheet.Columns))
				copy(padded, row)
				row = padded
			}
			sheet.Rows = append(sheet.Rows, row)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}
