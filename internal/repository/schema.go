package repository

// Schema definitions for Accord database.
// Compatible with both SQLite and PostgreSQL.

const schemaSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    clinic_id TEXT NOT NULL,
    machine_bands TEXT NOT NULL,
    self_bands TEXT NOT NULL,
    profile TEXT,
    timestamp TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    metadata TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_clinic ON sessions(clinic_id);
CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(clinic_id, timestamp);
`

const schemaReconciliations = `
CREATE TABLE IF NOT EXISTS reconciliations (
    id TEXT PRIMARY KEY,
    clinic_id TEXT NOT NULL,
    session_id TEXT NOT NULL,
    status TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    updates TEXT NOT NULL,
    per_rule TEXT NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reconciliations_clinic ON reconciliations(clinic_id);
CREATE INDEX IF NOT EXISTS idx_reconciliations_session ON reconciliations(clinic_id, session_id);
CREATE INDEX IF NOT EXISTS idx_reconciliations_status ON reconciliations(clinic_id, status);
CREATE INDEX IF NOT EXISTS idx_reconciliations_timestamp ON reconciliations(clinic_id, timestamp);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaSessions,
		schemaReconciliations,
	}
}
