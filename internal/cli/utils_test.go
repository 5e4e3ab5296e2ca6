package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

func TestWriteAnalysis_JSON(t *testing.T) {
	out := &AnalysisOutput{
		Answer: "Total installation cost was 500.",
		Dashboard: []models.ChartPayload{
			{
				Name:      "Cost by Quarter",
				Type:      models.BarChart,
				XAxisData: []string{"Q1", "Q2"},
				YAxisData: []float64{500, 620},
			},
		},
		Sources: []*models.ScoredChunk{
			{
				Chunk: &models.Chunk{
					ID:      "chunk-1",
					Content: "installation cost 500",
					Metadata: map[string]interface{}{
						models.MetaSourcePath: "costs.xlsx",
					},
				},
				Score: 0.9, Similarity: 0.8, Lexical: 1.0,
			},
		},
	}
	var buf bytes.Buffer
	if err := WriteAnalysis(&buf, out, OutputJSON); err != nil {
		t.Fatalf("WriteAnalysis(json): %v", err)
	}
	var decoded AnalysisOutput
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Answer != out.Answer {
		t.Errorf("decoded answer %q, want %q", decoded.Answer, out.Answer)
	}
	if len(decoded.Dashboard) != 1 || decoded.Dashboard[0].Name != "Cost by Quarter" {
		t.Errorf("decoded dashboard: %+v", decoded.Dashboard)
	}
}

func TestWriteAnalysis_text(t *testing.T) {
	out := &AnalysisOutput{
		Answer: "Total cost was 500.",
		Dashboard: []models.ChartPayload{
			{
				Name:       "Cost",
				Type:       models.LineChart,
				XAxisLabel: "Quarter",
				YAxisLabel: "USD",
				XAxisData:  []string{"Q1", "Q2", "Q3"},
				YAxisData:  []float64{1, 2, 3},
			},
		},
		Sources: []*models.ScoredChunk{
			{
				Chunk: &models.Chunk{
					Content: "installation cost 500 for the solar farm project",
					Metadata: map[string]interface{}{
						models.MetaSourcePath: "costs.xlsx",
					},
				},
				Score: 0.75, Similarity: 0.7, Lexical: 0.9,
			},
		},
	}
	var buf bytes.Buffer
	if err := WriteAnalysis(&buf, out, OutputText); err != nil {
		t.Fatalf("WriteAnalysis(text): %v", err)
	}
	text := buf.String()
	for _, sub := range []string{"Total cost was 500.", "[LineChart] Cost", "Quarter / USD", "points: 3", "Sources", "costs.xlsx", "0.75"} {
		if !strings.Contains(text, sub) {
			t.Errorf("text output missing %q:\n%s", sub, text)
		}
	}
}

func TestWriteAnalysis_text_noSources(t *testing.T) {
	out := &AnalysisOutput{Answer: "No data found."}
	var buf bytes.Buffer
	if err := WriteAnalysis(&buf, out, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Sources") {
		t.Errorf("output should omit sources section when empty:\n%s", buf.String())
	}
}

func TestWriteAnalysis_text_longSourceTruncated(t *testing.T) {
	long := strings.Repeat("cost ", 60) + "END"
	out := &AnalysisOutput{
		Answer: "ok",
		Sources: []*models.ScoredChunk{
			{Chunk: &models.Chunk{Content: long}, Score: 0.5},
		},
	}
	var buf bytes.Buffer
	if err := WriteAnalysis(&buf, out, OutputText); err != nil {
		t.Fatal(err)
	}
	text := buf.String()
	if strings.Contains(text, "END") {
		t.Error("long source content should be truncated")
	}
	if !strings.Contains(text, "cost...") {
		t.Errorf("truncated preview should end with ellipsis:\n%s", text)
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		s        string
		maxWords int
		want     string
	}{
		{"one two three", 5, "one two three"},
		{"one two three four", 2, "one two..."},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := TruncateWords(tt.s, tt.maxWords); got != tt.want {
			t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
		}
	}
}
