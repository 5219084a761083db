package store

// schemaSQL is the DDL for the deck and slide tables.
const schemaSQL = `
-- Deck registry with hash-based change detection
CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    filename TEXT NOT NULL,
    format TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    parse_method TEXT NOT NULL,
    status TEXT DEFAULT 'pending',
    title TEXT,
    author TEXT,
    metadata JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Ordered slide records, replaced wholesale on every parse
CREATE TABLE IF NOT EXISTS slides (
    id INTEGER PRIMARY KEY,
    deck_id INTEGER NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
    frame_number INTEGER NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    slide_type TEXT NOT NULL,
    UNIQUE(deck_id, frame_number)
);

CREATE INDEX IF NOT EXISTS idx_slides_deck ON slides(deck_id);
CREATE INDEX IF NOT EXISTS idx_decks_hash ON decks(content_hash);
`

// ftsSQL adds full-text search over slides. It is applied separately so a
// SQLite build without FTS5 still opens.
const ftsSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS slides_fts USING fts5(
    title,
    content,
    content='slides',
    content_rowid='id',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS slides_ai AFTER INSERT ON slides BEGIN
    INSERT INTO slides_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;
CREATE TRIGGER IF NOT EXISTS slides_ad AFTER DELETE ON slides BEGIN
    INSERT INTO slides_fts(slides_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
END;
CREATE TRIGGER IF NOT EXISTS slides_au AFTER UPDATE ON slides BEGIN
    INSERT INTO slides_fts(slides_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
    INSERT INTO slides_fts(rowid, title, content) VALUES (new.id, new.title, new.content);
END;
`
