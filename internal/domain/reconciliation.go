package domain

import (
	"strings"
	"time"
)

// Reconciliation is the persisted record of one aggregate engine run
// for a session.
type Reconciliation struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinicId"`
	SessionID string    `json:"sessionId"`
	Status    string    `json:"status"` // "OK" or "REFER"
	Timestamp time.Time `json:"timestamp"`

	// Merged band updates, keyed by band key.
	Updates map[string]Band `json:"updates"`

	// Per-rule decisions for audit. Rules that matched but resolved to
	// no decision appear with empty updates.
	PerRule map[string]*Decision `json:"perRule"`

	Metadata ReconciliationMetadata `json:"metadata"`
}

// ReconciliationMetadata contains processing information.
type ReconciliationMetadata struct {
	TraceID       string `json:"traceId"`
	RulesMatched  int    `json:"rulesMatched"`
	RulesDecided  int    `json:"rulesDecided"`
	PriorRuns     int    `json:"priorRuns,omitempty"`
	ResolveMs     int64  `json:"resolveMs"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion"`
}

// Reconciliation status constants.
const (
	StatusOK    = "OK"    // no referral advisories fired
	StatusRefer = "REFER" // at least one refer-* flag fired
)

// ReferralFlagPrefix marks flags that route the customer to a
// professional referral (e.g. "refer-derm").
const ReferralFlagPrefix = "refer-"

// HasReferral reports whether any per-rule decision carries a
// referral flag.
func (r *Reconciliation) HasReferral() bool {
	for _, dec := range r.PerRule {
		if dec == nil {
			continue
		}
		for _, f := range dec.Flags {
			if strings.HasPrefix(f, ReferralFlagPrefix) {
				return true
			}
		}
	}
	return false
}

// Verdicts collects the human-readable verdicts of decided rules, in
// no particular order.
func (r *Reconciliation) Verdicts() []string {
	var out []string
	for _, dec := range r.PerRule {
		if dec != nil && dec.Verdict != "" {
			out = append(out, dec.Verdict)
		}
	}
	return out
}
