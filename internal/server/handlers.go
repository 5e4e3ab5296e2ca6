package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ajadindian/greenfinanceplatform/internal/chartstore"
	"github.com/ajadindian/greenfinanceplatform/internal/completion"
	"github.com/ajadindian/greenfinanceplatform/internal/docstore"
	"github.com/ajadindian/greenfinanceplatform/internal/ingest"
	"github.com/ajadindian/greenfinanceplatform/internal/models"
)

// uploads are held in memory during extraction
const maxUploadBytes = 64 << 20

func projectID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	projectName := r.FormValue("project_name")
	s.logger.Debug("upload request",
		zap.Int64("project_id", pid),
		zap.String("file", header.Filename),
		zap.Int("bytes", len(content)))

	report, err := s.pipeline.IngestBytes(r.Context(), pid, projectName, header.Filename, content)
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	path := r.URL.Query().Get("source_path")
	if path == "" {
		var body struct {
			SourcePath string `json:"source_path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.SourcePath != "" {
			path = body.SourcePath
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "source_path is required (query or body)")
		return
	}
	removed, err := s.pipeline.DeleteFile(r.Context(), pid, path)
	if err != nil {
		s.logger.Error("file deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.respondError(w, http.StatusNotFound, "no indexed content for source_path")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"source_path": path, "status": "deleted"})
}

type queryRequest struct {
	Query   string           `json:"query"`
	History []models.Message `json:"history,omitempty"`
}

type queryResponse struct {
	Answer    string                `json:"Answer"`
	Dashboard []models.ChartPayload `json:"Dashboard"`
	Sources   []*models.ScoredChunk `json:"sources,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if s.completer == nil {
		s.respondError(w, http.StatusServiceUnavailable, "completion service not configured")
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	s.logger.Debug("query request", zap.Int64("project_id", pid), zap.String("query", req.Query))

	retrieved, err := s.retriever.Retrieve(r.Context(), pid, req.Query, req.History)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", retrieved.Context, req.Query)
	raw, err := s.completer.Complete(r.Context(), completion.SystemPrompt, prompt)
	if err != nil {
		s.logger.Error("completion failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	analysis, err := completion.ParseAnalysis(raw)
	if err != nil {
		s.logger.Error("analysis parse failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, queryResponse{
		Answer:    analysis.Answer,
		Dashboard: analysis.Dashboard,
		Sources:   retrieved.Chunks,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if s.syncer == nil {
		s.respondError(w, http.StatusServiceUnavailable, "chart sync not configured")
		return
	}
	s.logger.Debug("sync request", zap.Int64("project_id", pid))
	report, err := s.syncer.SyncProject(r.Context(), pid)
	if err != nil {
		s.logger.Error("chart sync failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleAppendNote(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if err := s.notes.Append(pid, body.Text); err != nil {
		if errors.Is(err, ingest.ErrBufferFull) {
			s.respondError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"project_id":   pid,
		"buffer_bytes": s.notes.Size(pid),
	})
}

func (s *Server) handleFlushNotes(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	text, seq := s.notes.Flush(pid)
	if text == "" {
		s.respondError(w, http.StatusNotFound, "no buffered notes for project")
		return
	}
	// Each flush gets its own source path so earlier batches stay indexed.
	source := fmt.Sprintf("notes/project-%d/flush-%d.txt", pid, seq)
	report, err := s.pipeline.IngestText(r.Context(), pid, source, text)
	if err != nil {
		s.logger.Error("note ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleClearNotes(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	s.notes.Clear(pid)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type saveChartRequest struct {
	Name      string              `json:"name"`
	Query     string              `json:"query,omitempty"`
	ChartData models.ChartPayload `json:"chart_data"`
	IsPinned  bool                `json:"is_pinned,omitempty"`
	CreatedBy string              `json:"created_by,omitempty"`
}

func (s *Server) handleSaveChart(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var req saveChartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		req.Name = req.ChartData.Name
	}
	chart := &models.Chart{
		ProjectID: pid,
		Name:      req.Name,
		Query:     req.Query,
		ChartData: req.ChartData,
		IsPinned:  req.IsPinned,
		CreatedBy: req.CreatedBy,
	}
	if err := s.charts.SaveChart(r.Context(), chart); err != nil {
		s.logger.Error("chart save failed", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, chart)
}

func (s *Server) handleListCharts(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	charts, err := s.charts.ListCharts(r.Context(), pid)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"charts": charts})
}

func (s *Server) handleListPinnedCharts(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	charts, err := s.charts.ListPinnedCharts(r.Context(), pid)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"charts": charts})
}

func (s *Server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	chart, err := s.charts.GetChart(r.Context(), chi.URLParam(r, "chartID"))
	if err != nil {
		s.respondChartError(w, err)
		return
	}
	if chart.ProjectID != pid {
		s.respondError(w, http.StatusNotFound, "chart not found")
		return
	}
	s.respondJSON(w, http.StatusOK, chart)
}

func (s *Server) handleDeleteChart(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	id := chi.URLParam(r, "chartID")
	s.logger.Debug("delete chart request", zap.String("id", id))
	if err := s.charts.DeleteChart(r.Context(), pid, id); err != nil {
		s.respondChartError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSetPinned(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var body struct {
		Pinned bool `json:"pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "chartID")
	if err := s.charts.SetPinned(r.Context(), pid, id, body.Pinned); err != nil {
		s.respondChartError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "pinned": body.Pinned})
}

type saveLayoutRequest struct {
	Name       string                         `json:"name"`
	LayoutData map[string][]models.LayoutItem `json:"layout_data,omitempty"`
	Charts     []string                       `json:"charts,omitempty"`
}

func (s *Server) handleSaveLayout(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var req saveLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	layout := &models.DashboardLayout{
		ProjectID:  pid,
		Name:       req.Name,
		LayoutData: req.LayoutData,
		Charts:     req.Charts,
	}
	if err := s.charts.SaveLayout(r.Context(), layout); err != nil {
		if errors.Is(err, chartstore.ErrUnknownChartRef) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("layout save failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, layout)
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	layouts, err := s.charts.ListLayouts(r.Context(), pid)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"layouts": layouts})
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	layout, charts, err := s.charts.GetLayout(r.Context(), pid, chi.URLParam(r, "layoutID"))
	if err != nil {
		if errors.Is(err, chartstore.ErrLayoutNotFound) {
			s.respondError(w, http.StatusNotFound, "layout not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"layout": layout,
		"charts": charts,
	})
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	chunkCount, err := s.docs.CountChunks(r.Context(), pid)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	charts, err := s.charts.ListCharts(r.Context(), pid)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"project_id": pid,
		"chunks":     chunkCount,
		"charts":     len(charts),
	}
	diskBytes, err := docstore.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondChartError maps chart store sentinels to HTTP statuses.
func (s *Server) respondChartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chartstore.ErrChartNotFound):
		s.respondError(w, http.StatusNotFound, "chart not found")
	case errors.Is(err, chartstore.ErrProjectMismatch):
		s.respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("chart operation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
