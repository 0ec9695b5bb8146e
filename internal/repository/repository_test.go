package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/clearskin/accord/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "accord-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	clinicID := "clinic-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetSession", func(t *testing.T) {
		session := &domain.Session{
			ID: "sess-001",
			MachineBands: domain.Readings{
				"moisture": domain.BandRed,
				"sebum":    domain.BandGreen,
			},
			SelfBands: domain.Readings{
				"moisture": domain.BandGreen,
			},
			Profile:   domain.Profile{Age: 38},
			Timestamp: time.Now().UTC(),
			CreatedAt: time.Now().UTC(),
			Metadata:  map[string]any{"consultant": "mk"},
		}

		if err := repo.SaveSession(ctx, clinicID, session); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}

		retrieved, err := repo.GetSession(ctx, clinicID, session.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}

		if retrieved.ID != session.ID {
			t.Errorf("expected ID %s, got %s", session.ID, retrieved.ID)
		}
		if retrieved.ClinicID != clinicID {
			t.Errorf("expected ClinicID %s, got %s", clinicID, retrieved.ClinicID)
		}
		if retrieved.MachineBands["moisture"] != domain.BandRed {
			t.Errorf("expected machine moisture red, got %s", retrieved.MachineBands["moisture"])
		}
		if retrieved.Profile.Age != 38 {
			t.Errorf("expected Age 38, got %d", retrieved.Profile.Age)
		}
	})

	t.Run("ClinicIsolation", func(t *testing.T) {
		otherClinic := "clinic-002"

		// Try to get session from different clinic
		_, err := repo.GetSession(ctx, otherClinic, "sess-001")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound for different clinic, got: %v", err)
		}
	})

	t.Run("RequiresClinicID", func(t *testing.T) {
		session := &domain.Session{ID: "sess-test"}

		err := repo.SaveSession(ctx, "", session)
		if err == nil {
			t.Error("expected error for empty clinicID")
		}

		_, err = repo.GetSession(ctx, "", "sess-001")
		if err == nil {
			t.Error("expected error for empty clinicID")
		}
	})

	t.Run("SaveAndGetReconciliation", func(t *testing.T) {
		rec := &domain.Reconciliation{
			ID:        "rec-001",
			SessionID: "sess-001",
			Status:    domain.StatusOK,
			Timestamp: time.Now().UTC(),
			Updates: map[string]domain.Band{
				"moisture": domain.BandRed,
			},
			PerRule: map[string]*domain.Decision{
				"moisture-machine-dry": {
					RuleID:  "moisture-machine-dry",
					Updates: map[string]domain.Band{"moisture": domain.BandRed},
					Flags:   []string{"barrier-compromised"},
				},
			},
			Metadata: domain.ReconciliationMetadata{TraceID: "trace-001", RulesMatched: 1, RulesDecided: 1},
		}

		if err := repo.SaveReconciliation(ctx, clinicID, rec); err != nil {
			t.Fatalf("SaveReconciliation failed: %v", err)
		}

		retrieved, err := repo.GetReconciliation(ctx, clinicID, rec.ID)
		if err != nil {
			t.Fatalf("GetReconciliation failed: %v", err)
		}

		if retrieved.ID != rec.ID {
			t.Errorf("expected ID %s, got %s", rec.ID, retrieved.ID)
		}
		if retrieved.Status != domain.StatusOK {
			t.Errorf("expected Status OK, got %s", retrieved.Status)
		}
		if retrieved.Updates["moisture"] != domain.BandRed {
			t.Errorf("expected moisture red, got %s", retrieved.Updates["moisture"])
		}
		dec := retrieved.PerRule["moisture-machine-dry"]
		if dec == nil || len(dec.Flags) != 1 || dec.Flags[0] != "barrier-compromised" {
			t.Errorf("per-rule decision not round-tripped: %+v", dec)
		}
	})

	t.Run("ListReconciliationsBySession", func(t *testing.T) {
		rec2 := &domain.Reconciliation{
			ID:        "rec-002",
			SessionID: "sess-001",
			Status:    domain.StatusRefer,
			Timestamp: time.Now().UTC(),
			Updates:   map[string]domain.Band{"acne": domain.BandRed},
			PerRule:   map[string]*domain.Decision{},
		}

		if err := repo.SaveReconciliation(ctx, clinicID, rec2); err != nil {
			t.Fatalf("SaveReconciliation failed: %v", err)
		}

		since := time.Now().Add(-1 * time.Hour)
		recs, err := repo.ListReconciliationsBySession(ctx, clinicID, "sess-001", since)
		if err != nil {
			t.Fatalf("ListReconciliationsBySession failed: %v", err)
		}

		if len(recs) != 2 {
			t.Errorf("expected 2 reconciliations, got %d", len(recs))
		}

		recs, err = repo.ListReconciliationsBySession(ctx, clinicID, "sess-001", time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("ListReconciliationsBySession failed: %v", err)
		}
		if len(recs) != 0 {
			t.Errorf("expected 0 reconciliations after window, got %d", len(recs))
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetSession(ctx, clinicID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetReconciliation(ctx, clinicID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
