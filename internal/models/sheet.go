package models

// SourceKind distinguishes the two classes of project spreadsheets.
type SourceKind string

const (
	SourceActual    SourceKind = "Actual"
	SourceQuotation SourceKind = "Quotation"
)

// Sheet is one worksheet of a tabular source: a header row of column names
// followed by data rows. Row cells align with Columns by position; an empty
// string is a null cell.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Workbook is a parsed tabular source file.
type Workbook struct {
	Sheets []Sheet
	// SkippedSheets lists sheets that could not be read, by name.
	SkippedSheets []string
}
