// Package chartstore persists charts and dashboard layouts.
package chartstore

import (
	"context"
	"errors"

	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// ErrChartNotFound is returned when a chart id does not resolve.
var ErrChartNotFound = errors.New("chart not found")

// ErrProjectMismatch is returned when a chart exists but belongs to a
// different project than the caller claimed. Updates are rejected rather
// than creating or moving charts implicitly.
var ErrProjectMismatch = errors.New("chart does not belong to project")

// ErrUnknownChartRef is returned when a layout being saved references a
// chart that does not exist.
var ErrUnknownChartRef = errors.New("layout references unknown chart")

// ErrLayoutNotFound is returned when a layout id does not resolve.
var ErrLayoutNotFound = errors.New("layout not found")

// Store is the chart persistence contract.
type Store interface {
	SaveChart(ctx context.Context, chart *models.Chart) error
	GetChart(ctx context.Context, id string) (*models.Chart, error)
	ListCharts(ctx context.Context, projectID int64) ([]*models.Chart, error)
	ListPinnedCharts(ctx context.Context, projectID int64) ([]*models.Chart, error)
	DeleteChart(ctx context.Context, projectID int64, id string) error
	SetPinned(ctx context.Context, projectID int64, id string, pinned bool) error
	// UpdateChartData overwrites the chart's payload and stamps LastUpdated.
	// The chart must exist and belong to projectID.
	UpdateChartData(ctx context.Context, projectID int64, id string, payload models.ChartPayload) error

	SaveLayout(ctx context.Context, layout *models.DashboardLayout) error
	// GetLayout returns a layout with its referenced charts resolved.
	// Dangling chart references are filtered out, never an error.
	GetLayout(ctx context.Context, projectID int64, id string) (*models.DashboardLayout, []*models.Chart, error)
	ListLayouts(ctx context.Context, projectID int64) ([]*models.DashboardLayout, error)
	ResolveLayoutCharts(ctx context.Context, layout *models.DashboardLayout) []*models.Chart

	Close() error
}
