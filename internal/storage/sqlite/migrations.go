package sqlite

// schema contains the database schema DDL.
const schema = `
-- Last known state of watched entities
CREATE TABLE IF NOT EXISTS entity_states (
    entity_id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    attributes TEXT NOT NULL DEFAULT '{}',
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Connection sessions, one row per generation
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    generation INTEGER NOT NULL,
    started_at DATETIME NOT NULL,
    authenticated_at DATETIME,
    ended_at DATETIME,
    error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
`
