package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require clinicID for strict per-clinic isolation.
type Repository interface {
	// Session operations
	SaveSession(ctx context.Context, clinicID string, session *Session) error
	GetSession(ctx context.Context, clinicID string, sessionID string) (*Session, error)

	// Reconciliation results
	SaveReconciliation(ctx context.Context, clinicID string, rec *Reconciliation) error
	GetReconciliation(ctx context.Context, clinicID string, recID string) (*Reconciliation, error)
	ListReconciliationsBySession(ctx context.Context, clinicID string, sessionID string, since time.Time) ([]*Reconciliation, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
