package storage

// SchemaVersion is the current audit database schema version.
const SchemaVersion = 1

// Schema creates the audit database schema.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,

    request_time TIMESTAMP NOT NULL,
    recorded_time TIMESTAMP NOT NULL,

    method TEXT NOT NULL,
    path TEXT NOT NULL,

    api_version TEXT,
    resource TEXT,

    user TEXT,
    tier TEXT,
    upstream TEXT,

    status INTEGER NOT NULL,
    latency_us INTEGER NOT NULL,
    request_bytes INTEGER,
    response_bytes INTEGER,

    remote_addr TEXT,
    user_agent TEXT,

    error TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_request_time ON audit_records(request_time);
CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_records(user);
CREATE INDEX IF NOT EXISTS idx_audit_upstream ON audit_records(upstream);
CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_records(status);
CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_records(request_id);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`
