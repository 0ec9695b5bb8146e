// Package report builds persisted reconciliation records from engine
// output and derives the session-level status.
package report

import (
	"context"
	"strings"
	"time"

	"github.com/clearskin/accord/internal/domain"
	"github.com/google/uuid"
)

// EngineVersion is stamped into reconciliation metadata.
const EngineVersion = "accord-1.0"

// Processor turns an aggregate engine result into a Reconciliation.
type Processor struct{}

// NewProcessor creates a report processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Input contains all data needed to build a reconciliation record.
type Input struct {
	ClinicID  string
	SessionID string
	TraceID   string
	Result    *domain.AggregateResult
	PriorRuns int
	StartTime time.Time
	ResolveMs int64
}

// Process assembles the reconciliation record, assigning an id and
// deriving the OK/REFER status from the decisions' advisory flags.
func (p *Processor) Process(ctx context.Context, input *Input) *domain.Reconciliation {
	rec := &domain.Reconciliation{
		ID:        uuid.New().String(),
		ClinicID:  input.ClinicID,
		SessionID: input.SessionID,
		Timestamp: time.Now().UTC(),
		Updates:   input.Result.Updates,
		PerRule:   input.Result.PerRule,
	}

	decided := 0
	for _, dec := range rec.PerRule {
		if dec != nil && len(dec.Updates) > 0 {
			decided++
		}
	}

	rec.Status = domain.StatusOK
	if rec.HasReferral() {
		rec.Status = domain.StatusRefer
	}

	rec.Metadata = domain.ReconciliationMetadata{
		TraceID:       input.TraceID,
		RulesMatched:  len(rec.PerRule),
		RulesDecided:  decided,
		PriorRuns:     input.PriorRuns,
		ResolveMs:     input.ResolveMs,
		TotalMs:       time.Since(input.StartTime).Milliseconds(),
		EngineVersion: EngineVersion,
	}

	return rec
}

// ShouldRefer reports whether the reconciliation should be routed to
// the referral topic.
func ShouldRefer(rec *domain.Reconciliation) bool {
	return rec.Status == domain.StatusRefer
}

// AdvisoryFlags collects every flag across per-rule decisions, in no
// particular order, for downstream routing.
func AdvisoryFlags(rec *domain.Reconciliation) []string {
	var flags []string
	for _, dec := range rec.PerRule {
		if dec == nil {
			continue
		}
		flags = append(flags, dec.Flags...)
	}
	return flags
}

// ReferralReasons extracts the verdicts of decisions that carried a
// referral flag.
func ReferralReasons(rec *domain.Reconciliation) []string {
	var reasons []string
	for _, dec := range rec.PerRule {
		if dec == nil || dec.Verdict == "" {
			continue
		}
		for _, f := range dec.Flags {
			if strings.HasPrefix(f, domain.ReferralFlagPrefix) {
				reasons = append(reasons, dec.Verdict)
				break
			}
		}
	}
	return reasons
}
