package session

// Schema creates the token table. One row per storage key.
const Schema = `
CREATE TABLE IF NOT EXISTS session_tokens (
    key        TEXT PRIMARY KEY,
    token      TEXT NOT NULL,
    saved_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
