// Package history counts prior reconciliation runs for a session.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/clearskin/accord/internal/domain"
)

// Service reports how many times a session has already been
// reconciled. Repeat runs usually mean the consultant re-entered
// answers, so the count is surfaced in reconciliation metadata.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new history service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// PriorRuns returns the number of reconciliations already stored for a
// session within the lookback window.
func (s *Service) PriorRuns(ctx context.Context, clinicID, sessionID string, window time.Duration) (int, error) {
	if clinicID == "" || sessionID == "" {
		return 0, fmt.Errorf("clinicID and sessionID are required")
	}

	if s.repo == nil {
		return 0, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-window)

	recs, err := s.repo.ListReconciliationsBySession(ctx, clinicID, sessionID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	return len(recs), nil
}

// RecordRun bumps the cached per-session run counter and returns the
// new value. Best effort: a cache error yields count 0.
func (s *Service) RecordRun(ctx context.Context, clinicID, sessionID string, window time.Duration) int64 {
	if s.cache == nil {
		return 0
	}
	count, err := s.cache.IncrementCounter(ctx, clinicID, "runs:"+sessionID, window)
	if err != nil {
		return 0
	}
	return count
}
