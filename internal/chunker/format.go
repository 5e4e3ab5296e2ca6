package chunker

import (
	"strconv"
	"strings"
	"time"
)

// canonicalTime is the rendered form for date/time cells. Keeping a single
// canonical form means embeddings stay stable across re-ingestion of
// unchanged data regardless of the workbook's display format.
const canonicalTime = "2006-01-02 15:04:05"

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06",
	"01-02-06",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// FormatValue canonicalizes a raw cell value: numbers render without trailing
// noise, recognizable dates render in the canonical form, everything else is
// trimmed and returned as-is. An empty result means a null cell.
func FormatValue(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(canonicalTime)
		}
	}
	return v
}
