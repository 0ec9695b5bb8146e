package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/clearskin/accord/internal/catalog"
	"github.com/clearskin/accord/internal/domain"
	"github.com/clearskin/accord/internal/engine"
	"github.com/clearskin/accord/internal/history"
	"github.com/clearskin/accord/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	engine    *engine.Engine
	processor *report.Processor
	history   *history.Service
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, processor *report.Processor, hist *history.Service, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		engine:    eng,
		processor: processor,
		history:   hist,
		version:   version,
	}
}

// MatchRequest is the request body for POST /match.
type MatchRequest struct {
	MachineBands map[string]string `json:"machineBands"`
	SelfBands    map[string]string `json:"selfBands"`
}

// Match handles POST /match: returns the applicable reconciliation
// rules and their follow-up questions for a pair of band readings.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	machine := parseBands(req.MachineBands)
	self := parseBands(req.SelfBands)

	matches := h.engine.Match(machine, self)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}

// ResolveRequest is the request body for POST /resolve.
type ResolveRequest struct {
	RuleID  string         `json:"ruleId"`
	Answers domain.Answers `json:"answers"`
	Profile domain.Profile `json:"profile,omitempty"`
}

// Resolve handles POST /resolve: evaluates a single rule's outcomes
// against the supplied answers.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.RuleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "ruleId is required",
		})
		return
	}

	decision := h.engine.Resolve(req.RuleID, req.Answers, req.Profile)
	if decision == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "rule not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// ReconcileRequest is the request body for POST /reconcile.
// Bands may be supplied inline or loaded from a stored session.
type ReconcileRequest struct {
	SessionID    string                    `json:"sessionId,omitempty"`
	MachineBands map[string]string         `json:"machineBands,omitempty"`
	SelfBands    map[string]string         `json:"selfBands,omitempty"`
	Answers      map[string]domain.Answers `json:"answers"`
	Profile      domain.Profile            `json:"profile,omitempty"`
}

// ReconcileResponse is the response for POST /reconcile.
type ReconcileResponse struct {
	ReconciliationID string                        `json:"reconciliationId"`
	SessionID        string                        `json:"sessionId,omitempty"`
	Status           string                        `json:"status"`
	Updates          map[string]domain.Band        `json:"updates"`
	PerRule          map[string]*domain.Decision   `json:"perRule"`
	Flags            []string                      `json:"flags,omitempty"`
	ReferralReasons  []string                      `json:"referralReasons,omitempty"`
	Metadata         domain.ReconciliationMetadata `json:"metadata"`
}

// Reconcile handles POST /reconcile: runs the full aggregate pipeline
// synchronously, persists the reconciliation, and publishes it.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	clinicID := GetClinicID(ctx)
	traceID := GetTraceID(ctx)

	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	machine := parseBands(req.MachineBands)
	self := parseBands(req.SelfBands)
	profile := req.Profile

	// Fall back to the stored session when bands are not supplied inline.
	if len(machine) == 0 && len(self) == 0 && req.SessionID != "" {
		snap := h.loadSessionSnapshot(ctx, clinicID, req.SessionID)
		if snap == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "session not found",
			})
			return
		}
		machine = snap.MachineBands
		self = snap.SelfBands
		if profile == (domain.Profile{}) {
			profile = snap.Profile
		}
	}

	if len(machine) == 0 && len(self) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "machineBands or selfBands are required (inline or via sessionId)",
		})
		return
	}

	// Run the engine
	resolveStart := time.Now()
	result := h.engine.AggregateAll(machine, self, req.Answers, profile)
	resolveMs := time.Since(resolveStart).Milliseconds()

	// Count prior runs for this session
	priorRuns := 0
	if h.history != nil && req.SessionID != "" {
		if n, err := h.history.PriorRuns(ctx, clinicID, req.SessionID, 24*time.Hour); err == nil {
			priorRuns = n
		}
		h.history.RecordRun(ctx, clinicID, req.SessionID, 24*time.Hour)
	}

	// Build the reconciliation record
	rec := h.processor.Process(ctx, &report.Input{
		ClinicID:  clinicID,
		SessionID: req.SessionID,
		TraceID:   traceID,
		Result:    result,
		PriorRuns: priorRuns,
		StartTime: start,
		ResolveMs: resolveMs,
	})

	// Save reconciliation
	if h.repo != nil {
		if err := h.repo.SaveReconciliation(ctx, clinicID, rec); err != nil {
			slog.Error("failed to save reconciliation", "error", err)
		}
	}

	// Publish decision, and referral when advisories fired
	if h.bus != nil {
		payload, _ := json.Marshal(rec)
		if err := h.bus.Publish(ctx, clinicID, domain.TopicDecision, payload); err != nil {
			slog.Error("failed to publish decision", "error", err)
		}
		if report.ShouldRefer(rec) {
			if err := h.bus.Publish(ctx, clinicID, domain.TopicReferral, payload); err != nil {
				slog.Error("failed to publish referral", "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, ReconcileResponse{
		ReconciliationID: rec.ID,
		SessionID:        rec.SessionID,
		Status:           rec.Status,
		Updates:          rec.Updates,
		PerRule:          rec.PerRule,
		Flags:            report.AdvisoryFlags(rec),
		ReferralReasons:  report.ReferralReasons(rec),
		Metadata:         rec.Metadata,
	})
}

// loadSessionSnapshot reads a session from cache, falling back to the
// repository and repopulating the cache on a hit.
func (h *Handler) loadSessionSnapshot(ctx context.Context, clinicID, sessionID string) *domain.SessionSnapshot {
	if h.cache != nil {
		if snap, err := h.cache.GetSession(ctx, clinicID, sessionID); err == nil && snap != nil {
			return snap
		}
	}

	if h.repo == nil {
		return nil
	}

	session, err := h.repo.GetSession(ctx, clinicID, sessionID)
	if err != nil {
		return nil
	}

	snap := &domain.SessionSnapshot{
		MachineBands: session.MachineBands,
		SelfBands:    session.SelfBands,
		Profile:      session.Profile,
		Timestamp:    session.Timestamp.Format(time.RFC3339),
	}

	if h.cache != nil {
		_ = h.cache.SetSession(ctx, clinicID, sessionID, snap, 30*time.Minute)
	}

	return snap
}

// CreateSession handles POST /sessions: stores a consultation session
// and announces it on the session topic.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clinicID := GetClinicID(ctx)

	var req domain.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if len(req.MachineBands) == 0 && len(req.SelfBands) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "machineBands or selfBands are required",
		})
		return
	}

	session := req.ToSession(clinicID)
	session.ID = uuid.New().String()

	if h.repo != nil {
		if err := h.repo.SaveSession(ctx, clinicID, session); err != nil {
			slog.Error("failed to save session", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save session",
			})
			return
		}
	}

	if h.cache != nil {
		snap := &domain.SessionSnapshot{
			MachineBands: session.MachineBands,
			SelfBands:    session.SelfBands,
			Profile:      session.Profile,
			Timestamp:    session.Timestamp.Format(time.RFC3339),
		}
		_ = h.cache.SetSession(ctx, clinicID, session.ID, snap, 30*time.Minute)
	}

	if h.bus != nil {
		payload, _ := json.Marshal(session)
		if err := h.bus.Publish(ctx, clinicID, domain.TopicSessionIngested, payload); err != nil {
			slog.Error("failed to publish session", "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, session)
}

// GetSession retrieves a session by ID.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clinicID := GetClinicID(ctx)
	sessionID := chi.URLParam(r, "id")

	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "session id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	session, err := h.repo.GetSession(ctx, clinicID, sessionID)
	if err != nil {
		slog.Error("failed to get session", "id", sessionID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "session not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// GetReconciliation retrieves a reconciliation by ID.
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clinicID := GetClinicID(ctx)
	recID := chi.URLParam(r, "id")

	if recID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "reconciliation id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	rec, err := h.repo.GetReconciliation(ctx, clinicID, recID)
	if err != nil {
		slog.Error("failed to get reconciliation", "id", recID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "reconciliation not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListRules returns the rule catalog loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := h.engine.Rules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule retrieves a rule by ID from the loaded catalog.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	rule, ok := h.engine.Rule(ruleID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "rule not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// SensitivityAdvisory returns the static sensitivity route.
// Sensitivity has no machine band, so it never enters the matcher.
func (h *Handler) SensitivityAdvisory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Sensitivity())
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
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

func parseBands(raw map[string]string) domain.Readings {
	out := make(domain.Readings, len(raw))
	for key, val := range raw {
		if band, ok := domain.ParseBand(val); ok {
			out[key] = band
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
