package models

import (
	"encoding/json"
	"time"
)

// LayoutItem places one chart inside a dashboard grid breakpoint.
// ChartID is the canonical reference field; legacy layouts used "chartId" or
// reused the grid key "i", and those shapes are accepted here, at unmarshal
// time, and nowhere else.
type LayoutItem struct {
	ItemID  string `json:"item_id"`
	ChartID string `json:"chart_id"`
}

// UnmarshalJSON is the single migration boundary for legacy layout items.
func (li *LayoutItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ItemID        string `json:"item_id"`
		I             string `json:"i"`
		ChartID       string `json:"chart_id"`
		LegacyChartID string `json:"chartId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	li.ItemID = raw.ItemID
	if li.ItemID == "" {
		li.ItemID = raw.I
	}
	li.ChartID = raw.ChartID
	if li.ChartID == "" {
		li.ChartID = raw.LegacyChartID
	}
	if li.ChartID == "" {
		li.ChartID = raw.I
	}
	return nil
}

// DashboardLayout arranges saved charts on a grid per responsive breakpoint.
// It holds non-owning references: a referenced chart may have been deleted,
// and readers filter such dangling references instead of failing.
type DashboardLayout struct {
	ID         string                  `json:"id"`
	ProjectID  int64                   `json:"project_id"`
	Name       string                  `json:"name"`
	LayoutData map[string][]LayoutItem `json:"layout_data"`
	Charts     []string                `json:"charts"`
	CreatedAt  time.Time               `json:"created_at"`
}

// ChartIDs returns the unique chart IDs referenced by the layout: the Charts
// list first, then any grid items not already listed.
func (l *DashboardLayout) ChartIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range l.Charts {
		add(id)
	}
	for _, items := range l.LayoutData {
		for _, item := range items {
			add(item.ChartID)
		}
	}
	return ids
}
