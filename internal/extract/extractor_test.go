package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestIsTabular(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".xlsx", true},
		{".XLSX", true},
		{".xls", true},
		{".txt", false},
		{".pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsTabular(tt.ext); got != tt.want {
			t.Errorf("IsTabular(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestExtractTextBytes_Plain(t *testing.T) {
	e := NewExtractor()
	text, err := e.ExtractTextBytes([]byte("installation cost 500\n"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if text != "installation cost 500\n" {
		t.Errorf("text: got %q", text)
	}
}

func buildWorkbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Quarter", "Installation Cost", "Maintenance Cost"},
		{"Q1", 500, 50},
		{"Q2", 750}, // trailing cell left empty
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractWorkbookBytes(t *testing.T) {
	e := NewExtractor()
	wb, err := e.ExtractWorkbookBytes(buildWorkbookBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(wb.Sheets) != 1 {
		t.Fatalf("sheets: got %d, want 1", len(wb.Sheets))
	}
	sheet := wb.Sheets[0]
	if len(sheet.Columns) != 3 || sheet.Columns[1] != "Installation Cost" {
		t.Errorf("columns: got %v", sheet.Columns)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(sheet.Rows))
	}
	// The short row is padded to align with the columns.
	if len(sheet.Rows[1]) != 3 || sheet.Rows[1][2] != "" {
		t.Errorf("padded row: got %v", sheet.Rows[1])
	}
	if sheet.Rows[0][1] != "500" {
		t.Errorf("cell value: got %q", sheet.Rows[0][1])
	}
}

func TestExtractWorkbookBytes_NotAWorkbook(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractWorkbookBytes([]byte("plain text, not a zip")); err == nil {
		t.Fatal("expected error for non-workbook content")
	}
}

func buildDocxBytes(t *testing.T, bodyXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(bodyXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	body := `<w:document><w:body>` +
		`<w:p w:rsidR="00A"><w:r><w:t>Solar warranty</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">expires 2027</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	text, err := extractDOCX(buildDocxBytes(t, body))
	if err != nil {
		t.Fatal(err)
	}
	if text != "Solar warranty expires 2027" {
		t.Errorf("text: got %q", text)
	}
}

func TestExtractDOCX_NotAZip(t *testing.T) {
	if _, err := extractDOCX([]byte("plain text, not an archive")); err == nil {
		t.Error("expected error for non-zip input")
	}
}
