// Package worker provides async reconciliation processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/clearskin/accord/internal/domain"
	"github.com/clearskin/accord/internal/engine"
	"github.com/clearskin/accord/internal/history"
	"github.com/clearskin/accord/internal/report"
)

// Worker processes reconciliation requests asynchronously from the EventBus.
type Worker struct {
	bus       domain.EventBus
	repo      domain.Repository
	engine    *engine.Engine
	processor *report.Processor
	history   *history.Service

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// ClinicIDs is the list of clinics to process (empty = all via wildcard if supported)
	ClinicIDs []string

	// WorkerCount is the number of concurrent workers per clinic
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, eng *engine.Engine, processor *report.Processor, hist *history.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		repo:      repo,
		engine:    eng,
		processor: processor,
		history:   hist,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins processing messages for the given clinics.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.ClinicIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, clinicID := range cfg.ClinicIDs {
		if err := w.startClinicWorker(clinicID); err != nil {
			slog.Error("failed to start worker for clinic",
				"clinic_id", clinicID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"clinic_count", len(cfg.ClinicIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all clinics (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" clinic ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicReconcileRequest, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startClinicWorker starts workers for a specific clinic.
func (w *Worker) startClinicWorker(clinicID string) error {
	// Subscribe to reconcile request topic
	sub, err := w.bus.Subscribe(w.ctx, clinicID, domain.TopicReconcileRequest, func(ctx context.Context, msg *domain.Message) error {
		return w.processReconcile(ctx, clinicID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("clinic worker started",
		"clinic_id", clinicID,
		"topic", domain.TopicReconcileRequest,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processReconcile(ctx, msg.ClinicID, msg)
}

// ReconcileMessage is the message payload for async reconciliation.
type ReconcileMessage struct {
	SessionID    string                    `json:"sessionId"`
	ClinicID     string                    `json:"clinicId"`
	TraceID      string                    `json:"traceId"`
	MachineBands map[string]string         `json:"machineBands"`
	SelfBands    map[string]string         `json:"selfBands"`
	Answers      map[string]domain.Answers `json:"answers"`
	Profile      domain.Profile            `json:"profile,omitempty"`
}

// processReconcile runs a reconcile request through the pipeline.
func (w *Worker) processReconcile(ctx context.Context, clinicID string, msg *domain.Message) error {
	start := time.Now()

	// Parse message
	var req ReconcileMessage
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse reconcile message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message clinic if provided
	if req.ClinicID != "" {
		clinicID = req.ClinicID
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing reconcile request",
		"session_id", req.SessionID,
		"clinic_id", clinicID,
		"trace_id", traceID,
	)

	machine := parseBands(req.MachineBands)
	self := parseBands(req.SelfBands)

	// 1. Run the engine
	resolveStart := time.Now()
	result := w.engine.AggregateAll(machine, self, req.Answers, req.Profile)
	resolveMs := time.Since(resolveStart).Milliseconds()

	// 2. Count prior runs for this session
	priorRuns := 0
	if w.history != nil && req.SessionID != "" {
		if n, err := w.history.PriorRuns(ctx, clinicID, req.SessionID, 24*time.Hour); err == nil {
			priorRuns = n
		}
		w.history.RecordRun(ctx, clinicID, req.SessionID, 24*time.Hour)
	}

	// 3. Build the reconciliation record
	rec := w.processor.Process(ctx, &report.Input{
		ClinicID:  clinicID,
		SessionID: req.SessionID,
		TraceID:   traceID,
		Result:    result,
		PriorRuns: priorRuns,
		StartTime: start,
		ResolveMs: resolveMs,
	})

	// 4. Save reconciliation
	if w.repo != nil {
		if err := w.repo.SaveReconciliation(ctx, clinicID, rec); err != nil {
			slog.Error("failed to save reconciliation",
				"session_id", req.SessionID,
				"error", err,
			)
		}
	}

	// 5. Publish result to decision topic
	resultPayload, _ := json.Marshal(rec)
	if err := w.bus.Publish(ctx, clinicID, domain.TopicDecision, resultPayload); err != nil {
		slog.Error("failed to publish decision",
			"session_id", req.SessionID,
			"error", err,
		)
	}

	// 6. If referral advisories fired, publish to referral topic
	if report.ShouldRefer(rec) {
		if err := w.bus.Publish(ctx, clinicID, domain.TopicReferral, resultPayload); err != nil {
			slog.Error("failed to publish referral",
				"session_id", req.SessionID,
				"error", err,
			)
		}
	}

	slog.Info("reconcile request processed",
		"session_id", req.SessionID,
		"clinic_id", clinicID,
		"status", rec.Status,
		"rules_matched", rec.Metadata.RulesMatched,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
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

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
