package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// A .docx file is a zip archive. The main body normally lives at
// word/document.xml, but the authoritative location is the Override entry in
// [Content_Types].xml, which some producers point elsewhere.
const (
	docxDefaultBodyPath = "word/document.xml"
	docxContentTypes    = "[Content_Types].xml"
	docxBodyContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// runText matches the inner text of <w:t> run elements, attributes included
// (xml:space="preserve" and friends).
var runText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// The Override element may list PartName and ContentType in either order.
var bodyOverride = []*regexp.Regexp{
	regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxBodyContentType) + `"`),
	regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxBodyContentType) + `"[^>]+PartName="([^"]+)"`),
}

// extractDOCX extracts the visible text of a .docx document. It collects
// every <w:t> run in the main body, joined by single spaces, so the content
// is indexable regardless of paragraph or run attributes.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("read docx: not a zip archive: %w", err)
	}

	bodyPath := docxBodyPath(zr)
	body, err := readArchiveFile(zr, bodyPath)
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}

	var runs []string
	for _, m := range runText.FindAllSubmatch(body, -1) {
		runs = append(runs, strings.TrimSpace(string(m[1])))
	}
	return strings.TrimSpace(strings.Join(runs, " ")), nil
}

// docxBodyPath resolves the main body part from [Content_Types].xml, falling
// back to the conventional location when the override is absent or unreadable.
func docxBodyPath(zr *zip.Reader) string {
	types, err := readArchiveFile(zr, docxContentTypes)
	if err != nil {
		return docxDefaultBodyPath
	}
	for _, re := range bodyOverride {
		if m := re.FindSubmatch(types); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDefaultBodyPath
}

func readArchiveFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
