package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/assessor"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/rules"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	assessor *assessor.Assessor
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *rules.Engine
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(riskAssessor *assessor.Assessor, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, version string) *Handler {
	return &Handler{
		assessor: riskAssessor,
		repo:     repo,
		cache:    cache,
		bus:      bus,
		engine:   engine,
		version:  version,
	}
}

// CheckRequest is the request body for POST /check.
type CheckRequest struct {
	Query string `json:"query"`
}

// CheckResponse is the response for POST /check: the verdict fields plus
// data provenance.
type CheckResponse struct {
	*domain.RiskVerdict
	ServedFromCache bool   `json:"servedFromCache"`
	Source          string `json:"source"`
}

// verdictEvent is the payload published on the verdict-computed topic.
type verdictEvent struct {
	Query           string           `json:"query"`
	RiskLevel       domain.RiskLevel `json:"riskLevel"`
	IdentityScore   int              `json:"identityScore"`
	ServedFromCache bool             `json:"servedFromCache"`
}

// Check handles POST /check requests.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	result, err := h.assessor.Assess(ctx, req.Query)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "query is required",
			})
			return
		}
		slog.Error("assessment failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "assessment failed",
		})
		return
	}

	if h.bus != nil {
		payload, _ := json.Marshal(verdictEvent{
			Query:           assessor.Normalize(req.Query),
			RiskLevel:       result.Verdict.RiskLevel,
			IdentityScore:   result.Verdict.IdentityScore,
			ServedFromCache: result.ServedFromCache,
		})
		if err := h.bus.Publish(ctx, domain.TopicVerdictComputed, payload); err != nil {
			slog.Warn("failed to publish verdict event", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		RiskVerdict:     result.Verdict,
		ServedFromCache: result.ServedFromCache,
		Source:          result.Source,
	})
}

// SubmitReportRequest is the request body for POST /reports.
type SubmitReportRequest struct {
	Target      string `json:"target"`
	ReportType  string `json:"reportType"`
	Description string `json:"description"`
}

// SubmitReport handles POST /reports. New reports always start pending;
// they only influence scoring once a moderator confirms them.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	target := assessor.Normalize(req.Target)
	if target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "target is required",
		})
		return
	}

	now := time.Now().UTC()
	report := &domain.CommunityReport{
		ID:          uuid.New().String(),
		Target:      target,
		ReportType:  req.ReportType,
		Description: req.Description,
		Status:      domain.ReportPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repo.SaveReport(ctx, report); err != nil {
		slog.Error("failed to save report", "target", target, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save report",
		})
		return
	}

	if h.bus != nil {
		payload, _ := json.Marshal(report)
		if err := h.bus.Publish(ctx, domain.TopicReportSubmitted, payload); err != nil {
			slog.Warn("failed to publish report event", "report_id", report.ID, "error", err)
		}
	}

	slog.Info("report submitted", "report_id", report.ID, "target", target)
	writeJSON(w, http.StatusCreated, report)
}

// ListTargetReports handles GET /reports/{target}. Only confirmed reports
// are exposed; pending and rejected submissions stay internal.
func (h *Handler) ListTargetReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target := assessor.Normalize(chi.URLParam(r, "target"))
	if target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "target is required",
		})
		return
	}

	reports, err := h.repo.ListConfirmedReports(ctx, target)
	if err != nil {
		slog.Error("failed to list reports", "target", target, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list reports",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"target":  target,
		"reports": reports,
		"count":   len(reports),
	})
}

// AdminListReports handles GET /admin/reports?status=&limit=.
// Defaults to the pending moderation queue.
func (h *Handler) AdminListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := domain.ReportStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.ReportPending
	}
	if !status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "status must be one of pending, confirmed, rejected",
		})
		return
	}

	limit := parseLimit(r.URL.Query().Get("limit"), 100)

	reports, err := h.repo.ListReports(ctx, status, limit)
	if err != nil {
		slog.Error("failed to list reports", "status", status, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list reports",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"reports": reports,
		"count":   len(reports),
	})
}

// UpdateReportStatusRequest is the request body for
// PUT /admin/reports/{id}/status.
type UpdateReportStatusRequest struct {
	Status domain.ReportStatus `json:"status"`
}

// UpdateReportStatus handles PUT /admin/reports/{id}/status. Confirmation
// publishes an invalidation event so the cached verdict for the target is
// recomputed with the new evidence.
func (h *Handler) UpdateReportStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reportID := chi.URLParam(r, "id")
	if reportID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "report id is required",
		})
		return
	}

	var req UpdateReportStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if !req.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "status must be one of pending, confirmed, rejected",
		})
		return
	}

	report, err := h.repo.UpdateReportStatus(ctx, reportID, req.Status)
	if err != nil {
		slog.Error("failed to update report status", "report_id", reportID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "report not found",
		})
		return
	}

	if req.Status == domain.ReportConfirmed && h.bus != nil {
		payload, _ := json.Marshal(map[string]string{
			"reportId": report.ID,
			"target":   report.Target,
		})
		if err := h.bus.Publish(ctx, domain.TopicReportConfirmed, payload); err != nil {
			slog.Warn("failed to publish confirmation event", "report_id", report.ID, "error", err)
		}
	}

	slog.Info("report status updated", "report_id", report.ID, "status", report.Status)
	writeJSON(w, http.StatusOK, report)
}

// IngestEntry is a single crawler or admin submission for the
// confirmed-scam list.
type IngestEntry struct {
	Content     string `json:"content"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Source      string `json:"source,omitempty"`
}

// IngestNumbersRequest is the request body for POST /numbers: a batch of
// discovered entries.
type IngestNumbersRequest struct {
	Entries []IngestEntry `json:"entries"`
}

// IngestNumber handles POST /numbers. Each entry is published to the ingest
// topic and persisted asynchronously by the worker; entries with empty
// content are skipped.
func (h *Handler) IngestNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req IngestNumbersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	var valid []IngestEntry
	for _, entry := range req.Entries {
		if assessor.Normalize(entry.Content) != "" {
			valid = append(valid, entry)
		}
	}
	if len(valid) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "at least one entry with content is required",
		})
		return
	}

	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	queued := 0
	for _, entry := range valid {
		payload, _ := json.Marshal(entry)
		if err := h.bus.Publish(ctx, domain.TopicNumberDiscovered, payload); err != nil {
			slog.Error("failed to publish discovered number", "content", entry.Content, "error", err)
			continue
		}
		queued++
	}

	if queued == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to queue entries",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "queued",
		"count":  queued,
	})
}

// UpsertCarrierRequest is the request body for POST /carriers.
type UpsertCarrierRequest struct {
	Prefix         string `json:"prefix"`
	CarrierName    string `json:"carrierName"`
	SubscriberType string `json:"subscriberType"`
}

// UpsertCarrier handles POST /carriers, maintaining the carrier reference
// dataset used for phone enrichment.
func (h *Handler) UpsertCarrier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UpsertCarrierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Prefix == "" || req.CarrierName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "prefix and carrierName are required",
		})
		return
	}

	rec := &domain.CarrierRecord{
		Prefix:         assessor.Normalize(req.Prefix),
		CarrierName:    req.CarrierName,
		SubscriberType: req.SubscriberType,
	}

	if err := h.repo.SaveCarrier(ctx, rec); err != nil {
		slog.Error("failed to save carrier", "prefix", rec.Prefix, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save carrier",
		})
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// ListRules returns all loaded rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// CreateRuleRequest is the request body for creating a risk rule.
type CreateRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Score       int    `json:"score"`
	Category    string `json:"category,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// CreateRule creates a new risk rule and saves it to the database.
// After saving, call POST /rules/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	now := time.Now().UTC()
	rule := &domain.RiskRule{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Score:       req.Score,
		Category:    req.Category,
		Enabled:     req.Enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Validate CEL expression and score bounds by attempting to load
	if err := h.engine.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule: " + err.Error(),
		})
		return
	}

	if err := h.repo.SaveRiskRule(ctx, rule); err != nil {
		slog.Error("failed to save risk rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	slog.Info("risk rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads all rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbRules, err := h.repo.ListRiskRules(ctx)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// ListSearches handles GET /admin/searches?limit=, the verdict audit trail.
func (h *Handler) ListSearches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := parseLimit(r.URL.Query().Get("limit"), 100)

	logs, err := h.repo.ListSearchLogs(ctx, limit)
	if err != nil {
		slog.Error("failed to list search logs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list search logs",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"searches": logs,
		"count":    len(logs),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
