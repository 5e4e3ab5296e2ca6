// Package chunker splits tabular and free-text sources into bounded,
// self-describing chunks for indexing.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// Chunker renders sources into chunks no longer than MaxChars characters.
// Each tabular chunk repeats the source header (file kind, project name,
// sheet name, column list) so it remains interpretable on its own; retrieval
// never depends on chunk ordering.
type Chunker struct {
	maxChars    int
	textWords   int
	textOverlap int
}

// NewChunker creates a chunker with the given character budget for tabular
// chunks and word window/overlap for free text.
func NewChunker(maxChars, textWords, textOverlap int) *Chunker {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Chunker{maxChars: maxChars, textWords: textWords, textOverlap: textOverlap}
}

// MaxChars returns the configured chunk character budget.
func (c *Chunker) MaxChars() int { return c.maxChars }

// ChunkWorkbook renders the sheets of a tabular source into chunks.
// Empty rows and empty columns are dropped first; null cells are omitted from
// the rendered row text. A source with zero non-empty rows across all sheets
// yields zero chunks.
func (c *Chunker) ChunkWorkbook(projectName string, kind models.SourceKind, sheets []models.Sheet) []string {
	header := fmt.Sprintf("%s File for Project: %s", kind, projectName)

	var chunks []string
	var lines []string
	length := 0

	open := func(prefix ...string) {
		lines = append([]string{header}, prefix...)
		length = len(header)
		for _, p := range prefix {
			length += 1 + len(p)
		}
	}
	seal := func() {
		chunks = append(chunks, strings.Join(lines, "\n"))
	}

	wroteRows := false
	for _, raw := range sheets {
		sheet := normalizeSheet(raw)
		if len(sheet.Rows) == 0 {
			continue
		}
		sheetHeader := "Sheet: " + sheet.Name
		columnsText := "Columns: " + strings.Join(sheet.Columns, ", ")

		if wroteRows {
			seal()
		}
		open(sheetHeader, columnsText)

		for _, row := range sheet.Rows {
			rowText := renderRow(sheet.Columns, row)
			if rowText == "" {
				continue
			}
			// A single row longer than the budget is cut to fit; this is the
			// only place content may be truncated.
			headerLen := len(header) + 1 + len(sheetHeader) + 1 + len(columnsText) + 1
			if max := c.maxChars - headerLen; len(rowText) > max && max > 0 {
				rowText = truncateRunes(rowText, max)
			}
			if length+1+len(rowText) > c.maxChars {
				seal()
				open(sheetHeader, columnsText)
			}
			lines = append(lines, rowText)
			length += 1 + len(rowText)
			wroteRows = true
		}
	}

	if !wroteRows {
		return nil
	}
	seal()
	return chunks
}

// ChunkText splits free text into overlapping word-window chunks, each capped
// at the character budget.
func (c *Chunker) ChunkText(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	size := c.textWords
	if size <= 0 {
		size = 512
	}
	step := size - c.textOverlap
	if step <= 0 {
		step = 1
	}
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[i:end], " ")
		if len(chunk) > c.maxChars {
			chunk = chunk[:c.maxChars]
		}
		chunks = append(chunks, chunk)
		if end >= len(words) {
			break
		}
	}
	return chunks
}

// renderRow renders "column: value" pairs joined by " | ", skipping null cells.
func renderRow(columns []string, row []string) string {
	parts := make([]string, 0, len(columns))
	for i, col := range columns {
		if i >= len(row) {
			break
		}
		v := FormatValue(row[i])
		if v == "" {
			continue
		}
		parts = append(parts, col+": "+v)
	}
	return strings.Join(parts, " | ")
}

// truncateRunes cuts s to at most max bytes without splitting a UTF-8
// sequence, so truncated rows stay valid text for embedding and indexing.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// normalizeSheet drops empty rows and empty columns from the sheet.
// A column is empty when it has no header or no row has a value in it.
func normalizeSheet(s models.Sheet) models.Sheet {
	keep := make([]int, 0, len(s.Columns))
	for i, col := range s.Columns {
		if strings.TrimSpace(col) == "" {
			continue
		}
		for _, row := range s.Rows {
			if i < len(row) && strings.TrimSpace(row[i]) != "" {
				keep = append(keep, i)
				break
			}
		}
	}

	out := models.Sheet{Name: s.Name, Columns: make([]string, 0, len(keep))}
	for _, i := range keep {
		out.Columns = append(out.Columns, strings.TrimSpace(s.Columns[i]))
	}
	for _, row := range s.Rows {
		empty := true
		projected := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				projected[j] = strings.TrimSpace(row[i])
				if projected[j] != "" {
					empty = false
				}
			}
		}
		if !empty {
			out.Rows = append(out.Rows, projected)
		}
	}
	return out
}
