// Package completion wraps the text-completion service behind a typed
// contract: prompts in, a validated Answer/Dashboard payload out.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// Service is the text-completion capability the core depends on. The returned
// text is expected to be a JSON object with top-level Answer and Dashboard
// keys; use ParseAnalysis to validate it.
type Service interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrMalformedResponse marks a completion response that is not the required
// JSON shape. It is recoverable: the caller keeps its stored state and marks
// the cycle failed.
var ErrMalformedResponse = errors.New("malformed completion response")

// SystemPrompt is the analyst instruction demanding the structured JSON
// contract. Kept verbatim so responses stay parseable across deployments.
const SystemPrompt = `You are an expert data analyst. Format your entire response as a JSON string. Your response must be exactly in this format:
{
    "Answer": "Your detailed analysis here",
    "Dashboard": []
}

The Dashboard array should contain visualization objects when appropriate, each with this structure:
{
    "Name": "string",
    "Type": "one of: BarChart, LineChart, DoubleBarChart, MulticolorLineChart, PieChart, DonutChart, ScatterPlot, Histogram, Table",
    "is_prediction": boolean,
    "X_axis_label": "string",
    "Y_axis_label": "string",
    "X_axis_data": ["array of strings"],
    "Y_axis_data": [array of numbers],
    "Y_axis_data_secondary": [array of numbers],
    "Forecasted_X_axis_data": ["array of strings"],
    "Forecasted_Y_axis_data": [array of numbers],
    "Labels": ["array of strings"],
    "Values": [array of numbers],
    "Column_headers": ["array of strings"],
    "Row_data": [["array", "of"], ["string", "arrays"]]
}

Important: Your entire response must be a valid JSON string. Do not include any text or explanation outside of the JSON structure.`

// ParseAnalysis validates and decodes a completion response. Violations of
// the contract (invalid JSON, missing keys, Dashboard not a list) return an
// error wrapping ErrMalformedResponse.
func ParseAnalysis(text string) (*models.AnalysisResponse, error) {
	trimmed := strings.TrimSpace(text)
	// Some models wrap JSON in a markdown fence despite instructions.
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	answerRaw, ok := raw["Answer"]
	if !ok {
		return nil, fmt.Errorf("%w: missing Answer key", ErrMalformedResponse)
	}
	dashboardRaw, ok := raw["Dashboard"]
	if !ok {
		return nil, fmt.Errorf("%w: missing Dashboard key", ErrMalformedResponse)
	}

	var resp models.AnalysisResponse
	if err := json.Unmarshal(answerRaw, &resp.Answer); err != nil {
		return nil, fmt.Errorf("%w: Answer is not a string", ErrMalformedResponse)
	}
	if err := json.Unmarshal(dashboardRaw, &resp.Dashboard); err != nil {
		return nil, fmt.Errorf("%w: Dashboard is not a chart list", ErrMalformedResponse)
	}
	return &resp, nil
}
