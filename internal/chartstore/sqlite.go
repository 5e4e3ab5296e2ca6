package chartstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the chart database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initChartSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initChartSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS charts (
		id TEXT PRIMARY KEY,
		project_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		query TEXT,
		chart_data TEXT NOT NULL,
		is_pinned INTEGER NOT NULL DEFAULT 0,
		created_by TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_charts_project ON charts(project_id);

	CREATE TABLE IF NOT EXISTS dashboard_layouts (
		id TEXT PRIMARY KEY,
		project_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		layout_data TEXT,
		charts TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_layouts_project ON dashboard_layouts(project_id);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveChart inserts a chart, assigning an ID and timestamps when unset.
func (s *SQLiteStore) SaveChart(ctx context.Context, chart *models.Chart) error {
	if err := chart.ChartData.Validate(); err != nil {
		return fmt.Errorf("invalid chart payload: %w", err)
	}
	if chart.ID == "" {
		chart.ID = uuid.New().String()
	}
	now := time.Now()
	if chart.CreatedAt.IsZero() {
		chart.CreatedAt = now
	}
	chart.LastUpdated = now

	payloadJSON, err := json.Marshal(chart.ChartData)
	if err != nil {
		return fmt.Errorf("failed to marshal chart data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO charts (id, project_id, name, query, chart_data, is_pinned, created_by, created_at, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chart.ID, chart.ProjectID, chart.Name, chart.Query, string(payloadJSON),
		chart.IsPinned, chart.CreatedBy, chart.CreatedAt, chart.LastUpdated,
	)
	return err
}

func scanChart(scan func(dest ...interface{}) error) (*models.Chart, error) {
	var chart models.Chart
	var payloadJSON string
	if err := scan(&chart.ID, &chart.ProjectID, &chart.Name, &chart.Query, &payloadJSON,
		&chart.IsPinned, &chart.CreatedBy, &chart.CreatedAt, &chart.LastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payloadJSON), &chart.ChartData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chart data: %w", err)
	}
	return &chart, nil
}

const chartColumns = `id, project_id, name, query, chart_data, is_pinned, created_by, created_at, last_updated`

// GetChart returns a chart by ID.
func (s *SQLiteStore) GetChart(ctx context.Context, id string) (*models.Chart, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chartColumns+` FROM charts WHERE id = ?`, id)
	chart, err := scanChart(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrChartNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return chart, nil
}

func (s *SQLiteStore) listCharts(ctx context.Context, query string, args ...interface{}) ([]*models.Chart, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var charts []*models.Chart
	for rows.Next() {
		chart, err := scanChart(rows.Scan)
		if err != nil {
			return nil, err
		}
		charts = append(charts, chart)
	}
	return charts, rows.Err()
}

// ListCharts returns all charts for a project in creation order.
func (s *SQLiteStore) ListCharts(ctx context.Context, projectID int64) ([]*models.Chart, error) {
	return s.listCharts(ctx,
		`SELECT `+chartColumns+` FROM charts WHERE project_id = ? ORDER BY created_at`, projectID)
}

// ListPinnedCharts returns the project's pinned charts.
func (s *SQLiteStore) ListPinnedCharts(ctx context.Context, projectID int64) ([]*models.Chart, error) {
	return s.listCharts(ctx,
		`SELECT `+chartColumns+` FROM charts WHERE project_id = ? AND is_pinned = 1 ORDER BY created_at`, projectID)
}

// DeleteChart removes a chart. Layouts referencing it are left alone; their
// readers filter the dangling reference.
func (s *SQLiteStore) DeleteChart(ctx context.Context, projectID int64, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM charts WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrChartNotFound, id)
	}
	return nil
}

// SetPinned pins or unpins a chart.
func (s *SQLiteStore) SetPinned(ctx context.Context, projectID int64, id string, pinned bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE charts SET is_pinned = ? WHERE id = ? AND project_id = ?`, pinned, id, projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrChartNotFound, id)
	}
	return nil
}

// UpdateChartData overwrites the chart payload after verifying ownership.
func (s *SQLiteStore) UpdateChartData(ctx context.Context, projectID int64, id string, payload models.ChartPayload) error {
	existing, err := s.GetChart(ctx, id)
	if err != nil {
		return err
	}
	if existing.ProjectID != projectID {
		return fmt.Errorf("%w: chart %s is owned by project %d", ErrProjectMismatch, id, existing.ProjectID)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal chart data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE charts SET chart_data = ?, last_updated = ? WHERE id = ?`,
		string(payloadJSON), time.Now(), id)
	return err
}

// SaveLayout inserts a layout after verifying every referenced chart exists.
func (s *SQLiteStore) SaveLayout(ctx context.Context, layout *models.DashboardLayout) error {
	for _, chartID := range layout.ChartIDs() {
		if _, err := s.GetChart(ctx, chartID); err != nil {
			return fmt.Errorf("%w: %s", ErrUnknownChartRef, chartID)
		}
	}
	if layout.ID == "" {
		layout.ID = uuid.New().String()
	}
	if layout.CreatedAt.IsZero() {
		layout.CreatedAt = time.Now()
	}
	layoutJSON, err := json.Marshal(layout.LayoutData)
	if err != nil {
		return fmt.Errorf("failed to marshal layout data: %w", err)
	}
	chartsJSON, err := json.Marshal(layout.Charts)
	if err != nil {
		return fmt.Errorf("failed to marshal chart list: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dashboard_layouts (id, project_id, name, layout_data, charts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		layout.ID, layout.ProjectID, layout.Name, string(layoutJSON), string(chartsJSON), layout.CreatedAt,
	)
	return err
}

func scanLayout(scan func(dest ...interface{}) error) (*models.DashboardLayout, error) {
	var layout models.DashboardLayout
	var layoutJSON, chartsJSON string
	if err := scan(&layout.ID, &layout.ProjectID, &layout.Name, &layoutJSON, &chartsJSON, &layout.CreatedAt); err != nil {
		return nil, err
	}
	if layoutJSON != "" {
		if err := json.Unmarshal([]byte(layoutJSON), &layout.LayoutData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal layout data: %w", err)
		}
	}
	if chartsJSON != "" {
		_ = json.Unmarshal([]byte(chartsJSON), &layout.Charts)
	}
	return &layout, nil
}

// GetLayout returns a layout and its referenced charts; references to deleted
// charts are skipped.
func (s *SQLiteStore) GetLayout(ctx context.Context, projectID int64, id string) (*models.DashboardLayout, []*models.Chart, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, layout_data, charts, created_at
		 FROM dashboard_layouts WHERE id = ?`, id)
	layout, err := scanLayout(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}
	if layout.ProjectID != projectID {
		return nil, nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, id)
	}
	return layout, s.ResolveLayoutCharts(ctx, layout), nil
}

// ListLayouts returns all layouts for a project.
func (s *SQLiteStore) ListLayouts(ctx context.Context, projectID int64) ([]*models.DashboardLayout, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, layout_data, charts, created_at
		 FROM dashboard_layouts WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var layouts []*models.DashboardLayout
	for rows.Next() {
		layout, err := scanLayout(rows.Scan)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, layout)
	}
	return layouts, rows.Err()
}

// ResolveLayoutCharts resolves the layout's chart references, silently
// dropping any that no longer exist.
func (s *SQLiteStore) ResolveLayoutCharts(ctx context.Context, layout *models.DashboardLayout) []*models.Chart {
	var charts []*models.Chart
	for _, chartID := range layout.ChartIDs() {
		chart, err := s.GetChart(ctx, chartID)
		if err != nil {
			continue
		}
		charts = append(charts, chart)
	}
	return charts
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
