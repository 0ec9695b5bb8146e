// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clearskin/accord/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveSession stores a consultation session with clinic isolation.
func (r *SQLRepository) SaveSession(ctx context.Context, clinicID string, session *domain.Session) error {
	if clinicID == "" {
		return fmt.Errorf("%w: clinicID is required", ErrInvalidInput)
	}

	machineBands, _ := json.Marshal(session.MachineBands)
	selfBands, _ := json.Marshal(session.SelfBands)
	profile, _ := json.Marshal(session.Profile)
	metadata, _ := json.Marshal(session.Metadata)

	query := `
		INSERT INTO sessions (
			id, clinic_id, machine_bands, self_bands, profile,
			timestamp, created_at, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		session.ID, clinicID,
		string(machineBands), string(selfBands), string(profile),
		session.Timestamp, session.CreatedAt,
		string(metadata),
	)
	return err
}

// GetSession retrieves a session by ID with clinic isolation.
func (r *SQLRepository) GetSession(ctx context.Context, clinicID string, sessionID string) (*domain.Session, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("%w: clinicID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, clinic_id, machine_bands, self_bands, profile,
			   timestamp, created_at, metadata
		FROM sessions
		WHERE clinic_id = ? AND id = ?
	`

	var session domain.Session
	var machineBands, selfBands, profile, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), clinicID, sessionID).Scan(
		&session.ID, &session.ClinicID,
		&machineBands, &selfBands, &profile,
		&session.Timestamp, &session.CreatedAt,
		&metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(machineBands), &session.MachineBands)
	json.Unmarshal([]byte(selfBands), &session.SelfBands)
	json.Unmarshal([]byte(profile), &session.Profile)
	json.Unmarshal([]byte(metadata), &session.Metadata)

	return &session, nil
}

// SaveReconciliation stores a reconciliation result with clinic isolation.
func (r *SQLRepository) SaveReconciliation(ctx context.Context, clinicID string, rec *domain.Reconciliation) error {
	if clinicID == "" {
		return fmt.Errorf("%w: clinicID is required", ErrInvalidInput)
	}

	updates, _ := json.Marshal(rec.Updates)
	perRule, _ := json.Marshal(rec.PerRule)
	metadata, _ := json.Marshal(rec.Metadata)

	query := `
		INSERT INTO reconciliations (
			id, clinic_id, session_id, status, timestamp,
			updates, per_rule, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, clinicID, rec.SessionID, rec.Status, rec.Timestamp,
		string(updates), string(perRule), string(metadata),
	)
	return err
}

// GetReconciliation retrieves a reconciliation by ID with clinic isolation.
func (r *SQLRepository) GetReconciliation(ctx context.Context, clinicID string, recID string) (*domain.Reconciliation, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("%w: clinicID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, clinic_id, session_id, status, timestamp,
			   updates, per_rule, metadata
		FROM reconciliations
		WHERE clinic_id = ? AND id = ?
	`

	var rec domain.Reconciliation
	var updates, perRule, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), clinicID, recID).Scan(
		&rec.ID, &rec.ClinicID, &rec.SessionID, &rec.Status, &rec.Timestamp,
		&updates, &perRule, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(updates), &rec.Updates)
	json.Unmarshal([]byte(perRule), &rec.PerRule)
	json.Unmarshal([]byte(metadata), &rec.Metadata)

	return &rec, nil
}

// ListReconciliationsBySession retrieves reconciliations for a session
// since a given time, newest first.
func (r *SQLRepository) ListReconciliationsBySession(ctx context.Context, clinicID string, sessionID string, since time.Time) ([]*domain.Reconciliation, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("%w: clinicID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, clinic_id, session_id, status, timestamp,
			   updates, per_rule, metadata
		FROM reconciliations
		WHERE clinic_id = ? AND session_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), clinicID, sessionID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.Reconciliation
	for rows.Next() {
		var rec domain.Reconciliation
		var updates, perRule, metadata string

		if err := rows.Scan(
			&rec.ID, &rec.ClinicID, &rec.SessionID, &rec.Status, &rec.Timestamp,
			&updates, &perRule, &metadata,
		); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(updates), &rec.Updates)
		json.Unmarshal([]byte(perRule), &rec.PerRule)
		json.Unmarshal([]byte(metadata), &rec.Metadata)
		recs = append(recs, &rec)
	}

	return recs, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
