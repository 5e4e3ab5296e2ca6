package chartsync

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// buildPrompt asks for a refresh of one chart. The stored payload is embedded
// verbatim so the model sees the exact structure it must preserve.
func buildPrompt(chart *models.Chart, dataContext string) (string, error) {
	payloadJSON, err := json.MarshalIndent(chart.ChartData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal chart payload: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the current project data below, regenerate the data for this existing chart.\n\n")
	fmt.Fprintf(&b, "Existing chart %q (type: %s):\n%s\n\n", chart.Name, chart.ChartData.Type, payloadJSON)
	b.WriteString("Requirements:\n")
	b.WriteString("1. Keep the same chart Name, Type, axis labels, and is_prediction flag.\n")
	b.WriteString("2. Update only the data values to reflect the current project data.\n")
	b.WriteString("3. Use the same data fields the chart already uses; leave unused fields empty.\n")
	if chart.ChartData.IsPrediction {
		b.WriteString("4. Re-derive the forecasted data points from the updated historical data.\n")
	}
	b.WriteString("\nReturn the chart as the single element of the Dashboard array.\n\n")
	fmt.Fprintf(&b, "Current project data:\n%s\n", dataContext)
	return b.String(), nil
}
