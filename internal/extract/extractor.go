// Package extract provides text and workbook extraction from source files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor reads raw source files into text or structured workbooks.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// IsTabular reports whether the extension (with leading dot) is a spreadsheet format.
func IsTabular(ext string) bool {
	switch strings.ToLower(ext) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// ExtractText reads the file at path and returns its plain text content.
// PDF and DOCX are decoded from their binary formats; everything else is
// treated as UTF-8 text.
func (e *Extractor) ExtractText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractTextBytes(content, ext)
}

// ExtractTextBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractTextBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	default:
		return extractPlain(content)
	}
}
