package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require clinicID for strict per-clinic isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, clinicID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, clinicID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, clinicID string, key string) error

	// GetSession retrieves a cached session snapshot.
	GetSession(ctx context.Context, clinicID string, sessionID string) (*SessionSnapshot, error)

	// SetSession caches a session snapshot for the reconcile pipeline.
	SetSession(ctx context.Context, clinicID string, sessionID string, snap *SessionSnapshot, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns the
	// new value. Used for per-session reconciliation run counts.
	IncrementCounter(ctx context.Context, clinicID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// SessionSnapshot holds cached session data passed through the
// reconcile pipeline, avoiding a repository round-trip per run.
type SessionSnapshot struct {
	MachineBands Readings `json:"machineBands"`
	SelfBands    Readings `json:"selfBands"`
	Profile      Profile  `json:"profile"`
	Timestamp    string   `json:"timestamp"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
