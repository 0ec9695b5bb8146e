package history

import (
	"context"
	"testing"
	"time"

	"github.com/clearskin/accord/internal/cache"
	"github.com/clearskin/accord/internal/domain"
	"github.com/clearskin/accord/internal/repository"
)

func testRepo(t *testing.T) domain.Repository {
	t.Helper()
	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: t.TempDir() + "/history.db",
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestPriorRunsEmpty(t *testing.T) {
	svc := NewService(testRepo(t), nil)

	count, err := svc.PriorRuns(context.Background(), "clinic-1", "sess-1", 24*time.Hour)
	if err != nil {
		t.Fatalf("PriorRuns: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 prior runs, got %d", count)
	}
}

func TestPriorRunsCountsStoredReconciliations(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	svc := NewService(repo, nil)

	for i := 0; i < 3; i++ {
		rec := &domain.Reconciliation{
			ID:        "rec-" + string(rune('a'+i)),
			ClinicID:  "clinic-1",
			SessionID: "sess-1",
			Status:    domain.StatusOK,
			Timestamp: time.Now().UTC(),
			Updates:   map[string]domain.Band{"moisture": domain.BandYellow},
			PerRule:   map[string]*domain.Decision{},
		}
		if err := repo.SaveReconciliation(ctx, "clinic-1", rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	count, err := svc.PriorRuns(ctx, "clinic-1", "sess-1", 24*time.Hour)
	if err != nil {
		t.Fatalf("PriorRuns: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 prior runs, got %d", count)
	}

	// Other sessions and clinics are not counted.
	count, _ = svc.PriorRuns(ctx, "clinic-1", "sess-2", 24*time.Hour)
	if count != 0 {
		t.Errorf("expected 0 runs for other session, got %d", count)
	}
	count, _ = svc.PriorRuns(ctx, "clinic-2", "sess-1", 24*time.Hour)
	if count != 0 {
		t.Errorf("expected 0 runs for other clinic, got %d", count)
	}
}

func TestPriorRunsWindow(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	svc := NewService(repo, nil)

	rec := &domain.Reconciliation{
		ID:        "rec-old",
		ClinicID:  "clinic-1",
		SessionID: "sess-1",
		Status:    domain.StatusOK,
		Timestamp: time.Now().UTC().Add(-48 * time.Hour),
		Updates:   map[string]domain.Band{},
		PerRule:   map[string]*domain.Decision{},
	}
	if err := repo.SaveReconciliation(ctx, "clinic-1", rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	count, err := svc.PriorRuns(ctx, "clinic-1", "sess-1", 24*time.Hour)
	if err != nil {
		t.Fatalf("PriorRuns: %v", err)
	}
	if count != 0 {
		t.Errorf("expected run outside window to be excluded, got %d", count)
	}

	count, _ = svc.PriorRuns(ctx, "clinic-1", "sess-1", 72*time.Hour)
	if count != 1 {
		t.Errorf("expected run inside wider window, got %d", count)
	}
}

func TestPriorRunsRequiresIdentity(t *testing.T) {
	svc := NewService(testRepo(t), nil)

	if _, err := svc.PriorRuns(context.Background(), "", "sess-1", time.Hour); err == nil {
		t.Error("expected error for missing clinic id")
	}
	if _, err := svc.PriorRuns(context.Background(), "clinic-1", "", time.Hour); err == nil {
		t.Error("expected error for missing session id")
	}
}

func TestPriorRunsNoDataSource(t *testing.T) {
	svc := NewService(nil, nil)

	if _, err := svc.PriorRuns(context.Background(), "clinic-1", "sess-1", time.Hour); err == nil {
		t.Error("expected error with no data source")
	}
}

func TestRecordRun(t *testing.T) {
	svc := NewService(nil, cache.NewLRUCache(100))
	ctx := context.Background()

	if got := svc.RecordRun(ctx, "clinic-1", "sess-1", time.Hour); got != 1 {
		t.Errorf("first run = %d, want 1", got)
	}
	if got := svc.RecordRun(ctx, "clinic-1", "sess-1", time.Hour); got != 2 {
		t.Errorf("second run = %d, want 2", got)
	}

	// Counters are scoped per clinic and session.
	if got := svc.RecordRun(ctx, "clinic-2", "sess-1", time.Hour); got != 1 {
		t.Errorf("other clinic = %d, want 1", got)
	}
	if got := svc.RecordRun(ctx, "clinic-1", "sess-2", time.Hour); got != 1 {
		t.Errorf("other session = %d, want 1", got)
	}
}

func TestRecordRunWithoutCache(t *testing.T) {
	svc := NewService(nil, nil)

	if got := svc.RecordRun(context.Background(), "clinic-1", "sess-1", time.Hour); got != 0 {
		t.Errorf("expected 0 without cache, got %d", got)
	}
}
