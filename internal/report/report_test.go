package report

import (
	"context"
	"testing"
	"time"

	"github.com/clearskin/accord/internal/domain"
)

func testResult(flags ...string) *domain.AggregateResult {
	return &domain.AggregateResult{
		Updates: map[string]domain.Band{"moisture": domain.BandRed},
		PerRule: map[string]*domain.Decision{
			"moisture-machine-dry": {
				RuleID:  "moisture-machine-dry",
				Updates: map[string]domain.Band{"moisture": domain.BandRed},
				Flags:   flags,
				Verdict: "barrier repair first",
			},
			"pores-machine-enlarged": {
				RuleID:  "pores-machine-enlarged",
				Updates: map[string]domain.Band{},
			},
		},
	}
}

func TestProcessBuildsRecord(t *testing.T) {
	p := NewProcessor()

	rec := p.Process(context.Background(), &Input{
		ClinicID:  "clinic-1",
		SessionID: "sess-1",
		TraceID:   "trace-1",
		Result:    testResult("barrier-compromised"),
		PriorRuns: 2,
		StartTime: time.Now().Add(-5 * time.Millisecond),
		ResolveMs: 3,
	})

	if rec.ID == "" {
		t.Error("expected a generated id")
	}
	if rec.ClinicID != "clinic-1" || rec.SessionID != "sess-1" {
		t.Errorf("identity fields wrong: %+v", rec)
	}
	if rec.Status != domain.StatusOK {
		t.Errorf("expected OK status, got %s", rec.Status)
	}
	if rec.Updates["moisture"] != domain.BandRed {
		t.Errorf("updates not carried: %v", rec.Updates)
	}
	if rec.Metadata.TraceID != "trace-1" {
		t.Errorf("trace id = %q", rec.Metadata.TraceID)
	}
	if rec.Metadata.RulesMatched != 2 {
		t.Errorf("rules matched = %d, want 2", rec.Metadata.RulesMatched)
	}
	if rec.Metadata.RulesDecided != 1 {
		t.Errorf("rules decided = %d, want 1", rec.Metadata.RulesDecided)
	}
	if rec.Metadata.PriorRuns != 2 {
		t.Errorf("prior runs = %d, want 2", rec.Metadata.PriorRuns)
	}
	if rec.Metadata.ResolveMs != 3 {
		t.Errorf("resolve ms = %d, want 3", rec.Metadata.ResolveMs)
	}
	if rec.Metadata.EngineVersion != EngineVersion {
		t.Errorf("engine version = %q", rec.Metadata.EngineVersion)
	}
}

func TestProcessReferralStatus(t *testing.T) {
	p := NewProcessor()

	rec := p.Process(context.Background(), &Input{
		ClinicID:  "clinic-1",
		Result:    testResult("refer-derm", "acne-category:Inflammatory"),
		StartTime: time.Now(),
	})

	if rec.Status != domain.StatusRefer {
		t.Errorf("expected REFER status, got %s", rec.Status)
	}
	if !ShouldRefer(rec) {
		t.Error("ShouldRefer should follow the status")
	}
}

func TestProcessAdvisoryFlagsStayOK(t *testing.T) {
	p := NewProcessor()

	// Non-referral flags never escalate the session status.
	rec := p.Process(context.Background(), &Input{
		ClinicID:  "clinic-1",
		Result:    testResult("barrier-compromised", "followup:vascular"),
		StartTime: time.Now(),
	})

	if rec.Status != domain.StatusOK {
		t.Errorf("expected OK status, got %s", rec.Status)
	}
	if ShouldRefer(rec) {
		t.Error("advisory flags should not route to the referral topic")
	}
}

func TestAdvisoryFlags(t *testing.T) {
	p := NewProcessor()
	rec := p.Process(context.Background(), &Input{
		Result:    testResult("refer-derm", "acne-category:Inflammatory"),
		StartTime: time.Now(),
	})

	flags := AdvisoryFlags(rec)
	if len(flags) != 2 {
		t.Errorf("expected 2 flags, got %v", flags)
	}
}

func TestReferralReasons(t *testing.T) {
	p := NewProcessor()

	rec := p.Process(context.Background(), &Input{
		Result:    testResult("refer-derm"),
		StartTime: time.Now(),
	})
	reasons := ReferralReasons(rec)
	if len(reasons) != 1 || reasons[0] != "barrier repair first" {
		t.Errorf("reasons = %v", reasons)
	}

	rec = p.Process(context.Background(), &Input{
		Result:    testResult("barrier-compromised"),
		StartTime: time.Now(),
	})
	if reasons := ReferralReasons(rec); len(reasons) != 0 {
		t.Errorf("expected no reasons without a referral flag, got %v", reasons)
	}
}

func TestProcessUniqueIDs(t *testing.T) {
	p := NewProcessor()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec := p.Process(context.Background(), &Input{
			Result:    testResult(),
			StartTime: time.Now(),
		})
		if seen[rec.ID] {
			t.Fatalf("duplicate reconciliation id %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}
