package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clearskin/accord/internal/bus"
	"github.com/clearskin/accord/internal/catalog"
	"github.com/clearskin/accord/internal/domain"
	"github.com/clearskin/accord/internal/engine"
	"github.com/clearskin/accord/internal/report"
)

func TestWorker(t *testing.T) {
	// Create channel bus
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	// Create engine with the default rule catalog
	eng := engine.New(catalog.Default())

	// Create processor
	processor := report.NewProcessor()

	// Create worker
	worker := NewWorker(eventBus, nil, eng, processor, nil)

	t.Run("StartAndStop", func(t *testing.T) {
		cfg := Config{
			ClinicIDs:   []string{"clinic-001"},
			WorkerCount: 1,
		}

		err := worker.Start(cfg)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := worker.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}

		err = worker.Stop()
		if err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		stats = worker.GetStats()
		if stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("ProcessReconcile", func(t *testing.T) {
		// Create fresh worker for this test
		w := NewWorker(eventBus, nil, eng, processor, nil)

		cfg := Config{
			ClinicIDs: []string{"clinic-test"},
		}
		w.Start(cfg)
		defer w.Stop()

		// Track decision results
		var decisionReceived atomic.Bool
		var decisionPayload []byte

		eventBus.Subscribe(context.Background(), "clinic-test", domain.TopicDecision, func(ctx context.Context, msg *domain.Message) error {
			decisionPayload = msg.Payload
			decisionReceived.Store(true)
			return nil
		})

		// Allow subscriptions to be active
		time.Sleep(50 * time.Millisecond)

		// Publish a reconcile request: machine sees dry skin, customer
		// disagrees, and the answers confirm a compromised barrier.
		req := ReconcileMessage{
			SessionID:    "sess-001",
			ClinicID:     "clinic-test",
			TraceID:      "trace-001",
			MachineBands: map[string]string{"moisture": "red"},
			SelfBands:    map[string]string{"moisture": "green"},
			Answers: map[string]domain.Answers{
				"moisture-machine-dry": {
					"Q1": {"Yes"},
					"Q2": {"Yes"},
					"Q3": {"Yes"},
				},
			},
		}

		payload, _ := json.Marshal(req)
		err := eventBus.Publish(context.Background(), "clinic-test", domain.TopicReconcileRequest, payload)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		// Wait for processing
		time.Sleep(100 * time.Millisecond)

		if !decisionReceived.Load() {
			t.Error("expected decision to be published")
		}

		if decisionPayload != nil {
			var rec domain.Reconciliation
			if err := json.Unmarshal(decisionPayload, &rec); err != nil {
				t.Fatalf("failed to parse decision: %v", err)
			}

			if rec.SessionID != "sess-001" {
				t.Errorf("expected sessionID 'sess-001', got '%s'", rec.SessionID)
			}
			if rec.ClinicID != "clinic-test" {
				t.Errorf("expected clinicID 'clinic-test', got '%s'", rec.ClinicID)
			}
			if rec.Metadata.TraceID != "trace-001" {
				t.Errorf("expected traceID 'trace-001', got '%s'", rec.Metadata.TraceID)
			}
			if rec.Updates["moisture"] != domain.BandRed {
				t.Errorf("expected moisture red, got '%s'", rec.Updates["moisture"])
			}
		}
	})

	t.Run("ReferralPublished", func(t *testing.T) {
		w := NewWorker(eventBus, nil, eng, processor, nil)

		cfg := Config{
			ClinicIDs: []string{"clinic-refer"},
		}
		w.Start(cfg)
		defer w.Stop()

		// Track referrals
		var referralReceived atomic.Bool

		eventBus.Subscribe(context.Background(), "clinic-refer", domain.TopicReferral, func(ctx context.Context, msg *domain.Message) error {
			referralReceived.Store(true)
			return nil
		})

		time.Sleep(50 * time.Millisecond)

		// Inflamed acne answers route to a dermatologist referral.
		req := ReconcileMessage{
			SessionID:    "sess-refer",
			ClinicID:     "clinic-refer",
			MachineBands: map[string]string{"acne": "yellow"},
			SelfBands:    map[string]string{"acne": "green"},
			Answers: map[string]domain.Answers{
				"acne-machine-acne": {
					"Q1": {"<10"},
					"Q5": {"6-15"},
				},
			},
		}

		payload, _ := json.Marshal(req)
		eventBus.Publish(context.Background(), "clinic-refer", domain.TopicReconcileRequest, payload)

		time.Sleep(100 * time.Millisecond)

		if !referralReceived.Load() {
			t.Error("expected referral to be published for inflamed acne")
		}
	})

	t.Run("MultiClinic", func(t *testing.T) {
		w := NewWorker(eventBus, nil, eng, processor, nil)

		cfg := Config{
			ClinicIDs: []string{"clinic-a", "clinic-b"},
		}
		w.Start(cfg)
		defer w.Stop()

		stats := w.GetStats()
		if stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions for 2 clinics, got %d", stats.SubscriptionCount)
		}
	})
}

func TestReconcileMessageParsing(t *testing.T) {
	raw := []byte(`{
		"sessionId": "sess-123",
		"clinicId": "clinic-001",
		"traceId": "trace-456",
		"machineBands": {"moisture": "red", "acne": "yellow"},
		"selfBands": {"moisture": "green"},
		"answers": {
			"moisture-machine-dry": {"Q1": "Yes", "Q2": ["Yes"]}
		},
		"profile": {"age": 41}
	}`)

	var parsed ReconcileMessage
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if parsed.SessionID != "sess-123" {
		t.Errorf("expected SessionID 'sess-123', got '%s'", parsed.SessionID)
	}
	if parsed.Profile.Age != 41 {
		t.Errorf("expected Age 41, got %d", parsed.Profile.Age)
	}

	// Bare strings and arrays both decode as answers.
	answers := parsed.Answers["moisture-machine-dry"]
	if len(answers["Q1"]) != 1 || answers["Q1"][0] != "Yes" {
		t.Errorf("expected Q1 ['Yes'], got %v", answers["Q1"])
	}
	if len(answers["Q2"]) != 1 || answers["Q2"][0] != "Yes" {
		t.Errorf("expected Q2 ['Yes'], got %v", answers["Q2"])
	}
}
