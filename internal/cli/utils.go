// Package cli provides output formatting for the greenfinance CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// AnalysisOutput is a query response as rendered by the CLI.
type AnalysisOutput struct {
	Answer    string                `json:"Answer"`
	Dashboard []models.ChartPayload `json:"Dashboard"`
	Sources   []*models.ScoredChunk `json:"sources,omitempty"`
}

// WriteAnalysis writes a query response to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteAnalysis(w io.Writer, out *AnalysisOutput, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		writeAnalysisText(w, out)
		return nil
	}
}

func writeAnalysisText(w io.Writer, out *AnalysisOutput) {
	fmt.Fprintln(w, out.Answer)
	for _, chart := range out.Dashboard {
		fmt.Fprintf(w, "\n[%s] %s\n", chart.Type, chart.Name)
		if chart.XAxisLabel != "" || chart.YAxisLabel != "" {
			fmt.Fprintf(w, "  axes: %s / %s\n", chart.XAxisLabel, chart.YAxisLabel)
		}
		if len(chart.XAxisData) > 0 {
			fmt.Fprintf(w, "  points: %d\n", len(chart.XAxisData))
		}
		if len(chart.Labels) > 0 {
			fmt.Fprintf(w, "  segments: %d\n", len(chart.Labels))
		}
	}
	if len(out.Sources) > 0 {
		fmt.Fprintf(w, "\n--- Sources ---\n")
		for _, chunk := range out.Sources {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Score: %.4f (semantic: %.4f, keyword: %.4f)\n",
				chunk.Score, chunk.Similarity, chunk.Lexical)
			if p := chunk.Chunk.SourcePath(); p != "" {
				fmt.Fprintf(w, "Source: %s\n", p)
			}
			fmt.Fprintf(w, "\n%s\n\n", TruncateWords(chunk.Chunk.Content, 40))
		}
	}
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
