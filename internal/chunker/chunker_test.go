package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

func costSheet() models.Sheet {
	return models.Sheet{
		Name:    "Costs",
		Columns: []string{"Quarter", "Installation Cost", "Maintenance Cost"},
		Rows: [][]string{
			{"Q1", "500", "50"},
			{"Q2", "750", "60"},
		},
	}
}

func TestChunkWorkbook_Header(t *testing.T) {
	c := NewChunker(8000, 512, 50)
	chunks := c.ChunkWorkbook("Solar Farm", models.SourceActual, []models.Sheet{costSheet()})
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}
	lines := strings.Split(chunks[0], "\n")
	want := []string{
		"Actual File for Project: Solar Farm",
		"Sheet: Costs",
		"Columns: Quarter, Installation Cost, Maintenance Cost",
		"Quarter: Q1 | Installation Cost: 500 | Maintenance Cost: 50",
		"Quarter: Q2 | Installation Cost: 750 | Maintenance Cost: 60",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines: got %d, want %d:\n%s", len(lines), len(want), chunks[0])
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestChunkWorkbook_QuotationHeader(t *testing.T) {
	c := NewChunker(8000, 512, 50)
	chunks := c.ChunkWorkbook("Solar Farm", models.SourceQuotation, []models.Sheet{costSheet()})
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "Quotation File for Project: Solar Farm") {
		t.Errorf("header: got %q", strings.SplitN(chunks[0], "\n", 2)[0])
	}
}

func TestChunkWorkbook_HeaderRepeatsOnOverflow(t *testing.T) {
	sheet := models.Sheet{
		Name:    "S",
		Columns: []string{"A"},
		Rows:    [][]string{{"alpha"}, {"bravo"}, {"charlie"}, {"delta"}},
	}
	// Budget fits the header plus roughly one row, forcing overflow.
	c := NewChunker(60, 512, 50)
	chunks := c.ChunkWorkbook("P", models.SourceActual, []models.Sheet{sheet})
	if len(chunks) < 2 {
		t.Fatalf("chunks: got %d, want >= 2", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 60 {
			t.Errorf("chunk %d exceeds budget: %d chars", i, len(chunk))
		}
		lines := strings.Split(chunk, "\n")
		if lines[0] != "Actual File for Project: P" {
			t.Errorf("chunk %d line 0: got %q", i, lines[0])
		}
		if lines[1] != "Sheet: S" {
			t.Errorf("chunk %d line 1: got %q", i, lines[1])
		}
		if lines[2] != "Columns: A" {
			t.Errorf("chunk %d line 2: got %q", i, lines[2])
		}
		if len(lines) < 4 {
			t.Errorf("chunk %d has no data rows", i)
		}
	}
}

func TestChunkWorkbook_OversizedRowKeepsValidUTF8(t *testing.T) {
	sheet := models.Sheet{
		Name:    "S",
		Columns: []string{"A"},
		Rows:    [][]string{{strings.Repeat("é", 40)}},
	}
	c := NewChunker(60, 512, 50)
	chunks := c.ChunkWorkbook("P", models.SourceActual, []models.Sheet{sheet})
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}
	if len(chunks[0]) > 60 {
		t.Errorf("chunk exceeds budget: %d chars", len(chunks[0]))
	}
	if !utf8.ValidString(chunks[0]) {
		t.Errorf("truncated chunk is not valid UTF-8: %q", chunks[0])
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"ééé", 3, "é"},
		{"ééé", 4, "éé"},
		{"日本語", 4, "日"},
		{"日本語", 2, ""},
	}
	for _, tt := range tests {
		got := truncateRunes(tt.s, tt.max)
		if got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateRunes(%q, %d) produced invalid UTF-8", tt.s, tt.max)
		}
	}
}

func TestChunkWorkbook_SkipsNullCells(t *testing.T) {
	sheet := models.Sheet{
		Name:    "S",
		Columns: []string{"A", "B", "C"},
		Rows:    [][]string{{"1", "", "3"}},
	}
	c := NewChunker(8000, 512, 50)
	chunks := c.ChunkWorkbook("P", models.SourceActual, []models.Sheet{sheet})
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}
	if strings.Contains(chunks[0], "B:") {
		t.Errorf("null cell rendered: %q", chunks[0])
	}
	if !strings.Contains(chunks[0], "A: 1 | C: 3") {
		t.Errorf("row: got %q", chunks[0])
	}
}

func TestChunkWorkbook_DropsEmptyRowsAndColumns(t *testing.T) {
	sheet := models.Sheet{
		Name:    "S",
		Columns: []string{"A", "", "Empty"},
		Rows: [][]string{
			{"", "", ""},
			{"1", "x", ""},
		},
	}
	c := NewChunker(8000, 512, 50)
	chunks := c.ChunkWorkbook("P", models.SourceActual, []models.Sheet{sheet})
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}
	// The unnamed column and the valueless "Empty" column are dropped; the
	// all-empty row produces no line.
	if !strings.Contains(chunks[0], "Columns: A\n") {
		t.Errorf("columns line: got %q", chunks[0])
	}
	if got := strings.Count(chunks[0], "A: "); got != 1 {
		t.Errorf("data rows: got %d, want 1\n%s", got, chunks[0])
	}
}

func TestChunkWorkbook_NoRowsYieldsNoChunks(t *testing.T) {
	sheets := []models.Sheet{
		{Name: "Empty", Columns: []string{"A"}, Rows: nil},
		{Name: "Blank", Columns: []string{"A"}, Rows: [][]string{{""}}},
	}
	c := NewChunker(8000, 512, 50)
	if chunks := c.ChunkWorkbook("P", models.SourceActual, sheets); chunks != nil {
		t.Errorf("chunks: got %v, want nil", chunks)
	}
}

func TestChunkWorkbook_NewSheetStartsNewChunk(t *testing.T) {
	sheets := []models.Sheet{
		{Name: "One", Columns: []string{"A"}, Rows: [][]string{{"1"}}},
		{Name: "Two", Columns: []string{"B"}, Rows: [][]string{{"2"}}},
	}
	c := NewChunker(8000, 512, 50)
	chunks := c.ChunkWorkbook("P", models.SourceActual, sheets)
	if len(chunks) != 2 {
		t.Fatalf("chunks: got %d, want 2", len(chunks))
	}
	if !strings.Contains(chunks[0], "Sheet: One") || strings.Contains(chunks[0], "Sheet: Two") {
		t.Errorf("chunk 0: %q", chunks[0])
	}
	if !strings.Contains(chunks[1], "Sheet: Two") {
		t.Errorf("chunk 1: %q", chunks[1])
	}
}

func TestChunkText(t *testing.T) {
	c := NewChunker(8000, 4, 1)
	words := []string{"one", "two", "three", "four", "five", "six"}
	chunks := c.ChunkText(strings.Join(words, " "))
	want := []string{
		"one two three four",
		"four five six",
	}
	if len(chunks) != len(want) {
		t.Fatalf("chunks: got %v, want %v", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: got %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkText_Empty(t *testing.T) {
	c := NewChunker(8000, 512, 50)
	if chunks := c.ChunkText("   \n\t"); chunks != nil {
		t.Errorf("chunks: got %v, want nil", chunks)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace", "  \t", ""},
		{"integer", "500", "500"},
		{"trailing zeros", "1.50", "1.5"},
		{"negative", "-3.0", "-3"},
		{"iso date", "2024-03-01", "2024-03-01 00:00:00"},
		{"us date", "3/1/2024", "2024-03-01 00:00:00"},
		{"datetime", "2024-03-01T09:30:00", "2024-03-01 09:30:00"},
		{"text", " Solar Farm ", "Solar Farm"},
		{"not a date", "Q1", "Q1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
