package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA temp_store = MEMORY;

-- One row per completed audit run
CREATE TABLE IF NOT EXISTS audits (
    audit_id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    mode TEXT NOT NULL,            -- fast, deep
    analysis_mode TEXT NOT NULL,   -- ai, deterministic
    vibe_score REAL NOT NULL,
    page_count INTEGER NOT NULL DEFAULT 0,
    performance_score INTEGER,     -- NULL when no lab audit ran
    llm_status TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audits_url ON audits(url, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audits_created ON audits(created_at DESC);
`
