// Package chartsync regenerates saved charts against the project's current
// indexed data. Each chart keeps its identity and structure; only the
// data-bearing fields are refreshed.
package chartsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajadindian/greenfinanceplatform/internal/chartstore"
	"github.com/ajadindian/greenfinanceplatform/internal/completion"
	"github.com/ajadindian/greenfinanceplatform/internal/models"
	"github.com/ajadindian/greenfinanceplatform/internal/retrieval"
)

// ChartState is the outcome of one chart's regeneration.
type ChartState string

const (
	StateUpdated   ChartState = "updated"
	StateUnchanged ChartState = "unchanged"
	StateFailed    ChartState = "failed"
)

// ChartResult reports the outcome for a single chart.
type ChartResult struct {
	ChartID string     `json:"chart_id"`
	Name    string     `json:"name"`
	State   ChartState `json:"state"`
	Error   string     `json:"error,omitempty"`
}

// Report summarizes one sync pass over a project.
type Report struct {
	ProjectID int64           `json:"project_id"`
	Results   []ChartResult   `json:"results"`
	Updated   []*models.Chart `json:"updated_charts,omitempty"`
}

// Engine drives chart regeneration. Syncs for the same project are
// serialized; distinct projects may sync concurrently.
type Engine struct {
	retriever *retrieval.Engine
	completer completion.Service
	charts    chartstore.Store

	contextQuery    string
	contextResults  int
	concurrency     int
	perChartTimeout time.Duration
	logger          *zap.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates a sync engine. contextQuery and contextResults control
// the single broad retrieval that feeds every chart's regeneration;
// concurrency bounds the per-chart fan-out.
func NewEngine(retriever *retrieval.Engine, completer completion.Service, charts chartstore.Store,
	contextQuery string, contextResults, concurrency int, perChartTimeout time.Duration, opts ...Option) *Engine {
	e := &Engine{
		retriever:       retriever,
		completer:       completer,
		charts:          charts,
		contextQuery:    contextQuery,
		contextResults:  contextResults,
		concurrency:     concurrency,
		perChartTimeout: perChartTimeout,
		logger:          zap.NewNop(),
		locks:           make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) projectLock(projectID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[projectID] = lock
	}
	return lock
}

// SyncProject regenerates every chart of the project. One chart's failure
// never blocks the others; the report carries per-chart outcomes.
func (e *Engine) SyncProject(ctx context.Context, projectID int64) (*Report, error) {
	lock := e.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	report := &Report{ProjectID: projectID}
	charts, err := e.charts.ListCharts(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list charts for project %d: %w", projectID, err)
	}
	if len(charts) == 0 {
		return report, nil
	}

	// One broad retrieval feeds every chart in this pass.
	retrieved, err := e.retriever.RetrieveBroad(ctx, projectID, e.contextQuery, e.contextResults)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve project context: %w", err)
	}
	if len(retrieved.Chunks) == 0 {
		e.logger.Info("no indexed data, skipping chart sync", zap.Int64("project_id", projectID))
		return report, nil
	}

	results := make([]ChartResult, len(charts))
	updated := make([]*models.Chart, len(charts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, chart := range charts {
		i, chart := i, chart
		g.Go(func() error {
			results[i] = ChartResult{ChartID: chart.ID, Name: chart.Name}
			chartCtx := gctx
			if e.perChartTimeout > 0 {
				var cancel context.CancelFunc
				chartCtx, cancel = context.WithTimeout(gctx, e.perChartTimeout)
				defer cancel()
			}
			fresh, state, err := e.syncChart(chartCtx, chart, retrieved.Context)
			if err != nil {
				results[i].State = StateFailed
				results[i].Error = err.Error()
				e.logger.Warn("chart sync failed",
					zap.Int64("project_id", projectID),
					zap.String("chart_id", chart.ID),
					zap.Error(err))
				return nil
			}
			results[i].State = state
			if state == StateUpdated {
				updated[i] = fresh
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Results = results
	for _, chart := range updated {
		if chart != nil {
			report.Updated = append(report.Updated, chart)
		}
	}
	e.logger.Info("chart sync complete",
		zap.Int64("project_id", projectID),
		zap.Int("charts", len(charts)),
		zap.Int("updated", len(report.Updated)))
	return report, nil
}

// syncChart regenerates one chart. A write happens only when the refreshed
// payload actually differs from the stored one.
func (e *Engine) syncChart(ctx context.Context, chart *models.Chart, dataContext string) (*models.Chart, ChartState, error) {
	prompt, err := buildPrompt(chart, dataContext)
	if err != nil {
		return nil, StateFailed, err
	}
	raw, err := e.completer.Complete(ctx, completion.SystemPrompt, prompt)
	if err != nil {
		return nil, StateFailed, fmt.Errorf("completion failed: %w", err)
	}
	analysis, err := completion.ParseAnalysis(raw)
	if err != nil {
		return nil, StateFailed, err
	}
	if len(analysis.Dashboard) == 0 {
		return nil, StateFailed, fmt.Errorf("%w: empty Dashboard", completion.ErrMalformedResponse)
	}

	fresh := reconcile(chart.ChartData, analysis.Dashboard[0])
	if payloadsEqual(chart.ChartData, fresh) {
		return nil, StateUnchanged, nil
	}
	if err := e.charts.UpdateChartData(ctx, chart.ProjectID, chart.ID, fresh); err != nil {
		return nil, StateFailed, fmt.Errorf("failed to persist chart: %w", err)
	}
	result, err := e.charts.GetChart(ctx, chart.ID)
	if err != nil {
		return nil, StateFailed, err
	}
	return result, StateUpdated, nil
}

// reconcile copies only the data-bearing fields of the regenerated payload
// onto the stored one. Name, Type, labels, and the prediction flag are kept
// from the original.
func reconcile(stored, fresh models.ChartPayload) models.ChartPayload {
	out := stored
	if fresh.XAxisData != nil {
		out.XAxisData = fresh.XAxisData
	}
	if fresh.YAxisData != nil {
		out.YAxisData = fresh.YAxisData
	}
	if fresh.YAxisDataSecondary != nil {
		out.YAxisDataSecondary = fresh.YAxisDataSecondary
	}
	if fresh.ForecastedXAxis != nil {
		out.ForecastedXAxis = fresh.ForecastedXAxis
	}
	if fresh.ForecastedYAxis != nil {
		out.ForecastedYAxis = fresh.ForecastedYAxis
	}
	if fresh.Labels != nil {
		out.Labels = fresh.Labels
	}
	if fresh.Values != nil {
		out.Values = fresh.Values
	}
	if fresh.ColumnHeaders != nil {
		out.ColumnHeaders = fresh.ColumnHeaders
	}
	if fresh.RowData != nil {
		out.RowData = fresh.RowData
	}
	return out
}

func payloadsEqual(a, b models.ChartPayload) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aj) == string(bj)
}
