package models

import (
	"fmt"
	"time"
)

// ChartType enumerates the supported visualization types.
type ChartType string

const (
	BarChart            ChartType = "BarChart"
	LineChart           ChartType = "LineChart"
	DoubleBarChart      ChartType = "DoubleBarChart"
	MulticolorLineChart ChartType = "MulticolorLineChart"
	PieChart            ChartType = "PieChart"
	DonutChart          ChartType = "DonutChart"
	ScatterPlot         ChartType = "ScatterPlot"
	Histogram           ChartType = "Histogram"
	Table               ChartType = "Table"
)

var chartTypes = map[ChartType]bool{
	BarChart: true, LineChart: true, DoubleBarChart: true,
	MulticolorLineChart: true, PieChart: true, DonutChart: true,
	ScatterPlot: true, Histogram: true, Table: true,
}

// Valid reports whether t is one of the supported chart types.
func (t ChartType) Valid() bool { return chartTypes[t] }

// ChartPayload is the closed schema describing one visualization: its type,
// axes, and data. Field names follow the completion-service JSON contract.
type ChartPayload struct {
	Name         string    `json:"Name"`
	Type         ChartType `json:"Type"`
	IsPrediction bool      `json:"is_prediction"`
	XAxisLabel   string    `json:"X_axis_label"`
	YAxisLabel   string    `json:"Y_axis_label"`

	XAxisData          []string   `json:"X_axis_data"`
	YAxisData          []float64  `json:"Y_axis_data"`
	YAxisDataSecondary []float64  `json:"Y_axis_data_secondary"`
	ForecastedXAxis    []string   `json:"Forecasted_X_axis_data"`
	ForecastedYAxis    []float64  `json:"Forecasted_Y_axis_data"`
	Labels             []string   `json:"Labels"`
	Values             []float64  `json:"Values"`
	ColumnHeaders      []string   `json:"Column_headers"`
	RowData            [][]string `json:"Row_data"`
}

// Validate checks the payload has a known type and a non-empty name.
func (p *ChartPayload) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("chart payload missing Name")
	}
	if !p.Type.Valid() {
		return fmt.Errorf("unknown chart type %q", p.Type)
	}
	return nil
}

// Chart is a persisted visualization owned by exactly one project.
// Type, Name, and structural shape are immutable once saved; synchronization
// may overwrite only the data-bearing payload fields.
type Chart struct {
	ID          string       `json:"id"`
	ProjectID   int64        `json:"project_id"`
	Name        string       `json:"name"`
	Query       string       `json:"query"`
	ChartData   ChartPayload `json:"chart_data"`
	IsPinned    bool         `json:"is_pinned"`
	CreatedBy   string       `json:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	LastUpdated time.Time    `json:"last_updated"`
}

// AnalysisResponse is the structured payload the completion service must
// return: a textual answer plus zero or more chart suggestions.
type AnalysisResponse struct {
	Answer    string         `json:"Answer"`
	Dashboard []ChartPayload `json:"Dashboard"`
}
