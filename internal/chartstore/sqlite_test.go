package chartstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "charts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func barChart(projectID int64, name string) *models.Chart {
	return &models.Chart{
		ProjectID: projectID,
		Name:      name,
		ChartData: models.ChartPayload{
			Name: name, Type: models.BarChart,
			XAxisData: []string{"Q1"}, YAxisData: []float64{500},
		},
	}
}

func TestSaveChart(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chart := barChart(1, "Cost")
	if err := store.SaveChart(ctx, chart); err != nil {
		t.Fatal(err)
	}
	if chart.ID == "" {
		t.Fatal("ID not assigned")
	}
	if chart.CreatedAt.IsZero() || chart.LastUpdated.IsZero() {
		t.Error("timestamps not stamped")
	}

	got, err := store.GetChart(ctx, chart.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Cost" || got.ChartData.Type != models.BarChart {
		t.Errorf("round trip: got %+v", got)
	}
	if len(got.ChartData.YAxisData) != 1 || got.ChartData.YAxisData[0] != 500 {
		t.Errorf("payload: got %+v", got.ChartData)
	}
}

func TestSaveChart_InvalidPayload(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveChart(context.Background(), &models.Chart{
		ProjectID: 1, Name: "x",
		ChartData: models.ChartPayload{Name: "x", Type: "Sparkline"},
	})
	if err == nil {
		t.Fatal("expected validation error for unknown chart type")
	}
}

func TestGetChart_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetChart(context.Background(), "missing")
	if !errors.Is(err, ErrChartNotFound) {
		t.Errorf("error: got %v, want ErrChartNotFound", err)
	}
}

func TestListCharts_ProjectScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, c := range []*models.Chart{barChart(1, "A"), barChart(1, "B"), barChart(2, "C")} {
		if err := store.SaveChart(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	charts, err := store.ListCharts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(charts) != 2 {
		t.Fatalf("charts: got %d, want 2", len(charts))
	}
	if charts[0].Name != "A" || charts[1].Name != "B" {
		t.Errorf("order: got %s, %s", charts[0].Name, charts[1].Name)
	}
}

func TestDeleteChart(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chart := barChart(1, "Cost")
	if err := store.SaveChart(ctx, chart); err != nil {
		t.Fatal(err)
	}

	// Wrong project cannot delete.
	if err := store.DeleteChart(ctx, 2, chart.ID); !errors.Is(err, ErrChartNotFound) {
		t.Errorf("cross-project delete: got %v, want ErrChartNotFound", err)
	}
	if err := store.DeleteChart(ctx, 1, chart.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetChart(ctx, chart.ID); !errors.Is(err, ErrChartNotFound) {
		t.Errorf("after delete: got %v, want ErrChartNotFound", err)
	}
}

func TestSetPinned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pinned := barChart(1, "Pinned")
	plain := barChart(1, "Plain")
	for _, c := range []*models.Chart{pinned, plain} {
		if err := store.SaveChart(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SetPinned(ctx, 1, pinned.ID, true); err != nil {
		t.Fatal(err)
	}

	charts, err := store.ListPinnedCharts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(charts) != 1 || charts[0].ID != pinned.ID || !charts[0].IsPinned {
		t.Errorf("pinned: got %+v", charts)
	}

	if err := store.SetPinned(ctx, 1, pinned.ID, false); err != nil {
		t.Fatal(err)
	}
	charts, err = store.ListPinnedCharts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(charts) != 0 {
		t.Errorf("after unpin: got %+v", charts)
	}

	if err := store.SetPinned(ctx, 1, "missing", true); !errors.Is(err, ErrChartNotFound) {
		t.Errorf("unknown chart: got %v, want ErrChartNotFound", err)
	}
}

func TestUpdateChartData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chart := barChart(1, "Cost")
	if err := store.SaveChart(ctx, chart); err != nil {
		t.Fatal(err)
	}
	before, err := store.GetChart(ctx, chart.ID)
	if err != nil {
		t.Fatal(err)
	}

	fresh := models.ChartPayload{
		Name: "Cost", Type: models.BarChart,
		XAxisData: []string{"Q1", "Q2"}, YAxisData: []float64{500, 750},
	}
	if err := store.UpdateChartData(ctx, 1, chart.ID, fresh); err != nil {
		t.Fatal(err)
	}
	after, err := store.GetChart(ctx, chart.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.ChartData.YAxisData) != 2 {
		t.Errorf("payload not updated: %+v", after.ChartData)
	}
	if !after.LastUpdated.After(before.LastUpdated) {
		t.Error("LastUpdated not advanced")
	}
}

func TestUpdateChartData_ProjectMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chart := barChart(1, "Cost")
	if err := store.SaveChart(ctx, chart); err != nil {
		t.Fatal(err)
	}
	err := store.UpdateChartData(ctx, 2, chart.ID, chart.ChartData)
	if !errors.Is(err, ErrProjectMismatch) {
		t.Errorf("error: got %v, want ErrProjectMismatch", err)
	}
}

func TestSaveLayout_UnknownChartRef(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveLayout(context.Background(), &models.DashboardLayout{
		ProjectID: 1, Name: "main", Charts: []string{"missing"},
	})
	if !errors.Is(err, ErrUnknownChartRef) {
		t.Errorf("error: got %v, want ErrUnknownChartRef", err)
	}
}

func TestGetLayout_DanglingRefFiltered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	kept := barChart(1, "Kept")
	doomed := barChart(1, "Doomed")
	for _, c := range []*models.Chart{kept, doomed} {
		if err := store.SaveChart(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	layout := &models.DashboardLayout{
		ProjectID: 1, Name: "main",
		Charts: []string{kept.ID, doomed.ID},
	}
	if err := store.SaveLayout(ctx, layout); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteChart(ctx, 1, doomed.ID); err != nil {
		t.Fatal(err)
	}

	got, charts, err := store.GetLayout(ctx, 1, layout.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "main" {
		t.Errorf("layout: got %+v", got)
	}
	if len(charts) != 1 || charts[0].ID != kept.ID {
		t.Errorf("resolved charts: got %+v", charts)
	}
}

func TestGetLayout_WrongProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	layout := &models.DashboardLayout{ProjectID: 1, Name: "main"}
	if err := store.SaveLayout(ctx, layout); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.GetLayout(ctx, 2, layout.ID); !errors.Is(err, ErrLayoutNotFound) {
		t.Errorf("error: got %v, want ErrLayoutNotFound", err)
	}
}

func TestListLayouts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chart := barChart(1, "Cost")
	if err := store.SaveChart(ctx, chart); err != nil {
		t.Fatal(err)
	}
	layout := &models.DashboardLayout{
		ProjectID:  1,
		Name:       "main",
		LayoutData: map[string][]models.LayoutItem{"lg": {{ItemID: "item-1", ChartID: chart.ID}}},
	}
	if err := store.SaveLayout(ctx, layout); err != nil {
		t.Fatal(err)
	}

	layouts, err := store.ListLayouts(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(layouts) != 1 {
		t.Fatalf("layouts: got %d, want 1", len(layouts))
	}
	items := layouts[0].LayoutData["lg"]
	if len(items) != 1 || items[0].ChartID != chart.ID || items[0].ItemID != "item-1" {
		t.Errorf("layout data: got %+v", items)
	}
}
