package models

import (
	"encoding/json"
	"testing"
)

func TestLayoutItemUnmarshal(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantItemID  string
		wantChartID string
	}{
		{"canonical", `{"item_id": "a", "chart_id": "c1"}`, "a", "c1"},
		{"legacy chartId", `{"item_id": "a", "chartId": "c1"}`, "a", "c1"},
		{"grid key only", `{"i": "c1"}`, "c1", "c1"},
		{"canonical wins over legacy", `{"chart_id": "new", "chartId": "old", "i": "grid"}`, "grid", "new"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item LayoutItem
			if err := json.Unmarshal([]byte(tt.in), &item); err != nil {
				t.Fatal(err)
			}
			if item.ItemID != tt.wantItemID {
				t.Errorf("ItemID: got %q, want %q", item.ItemID, tt.wantItemID)
			}
			if item.ChartID != tt.wantChartID {
				t.Errorf("ChartID: got %q, want %q", item.ChartID, tt.wantChartID)
			}
		})
	}
}

func TestDashboardLayoutChartIDs(t *testing.T) {
	layout := DashboardLayout{
		Charts: []string{"c1", "c2"},
		LayoutData: map[string][]LayoutItem{
			"lg": {{ChartID: "c2"}, {ChartID: "c3"}, {ChartID: ""}},
			"sm": {{ChartID: "c3"}},
		},
	}
	ids := layout.ChartIDs()
	if len(ids) != 3 {
		t.Fatalf("ids: got %v, want 3 unique", ids)
	}
	// The Charts list leads, in order.
	if ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("order: got %v", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen["c3"] {
		t.Errorf("grid-only reference missing: %v", ids)
	}
}
