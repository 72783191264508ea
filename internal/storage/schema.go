package storage

const schema = `
-- The 'cards' table stores each flashcard and its Leitner box.
-- front and back hold the JSON form of a card side.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    box INTEGER NOT NULL DEFAULT 1 CHECK (box BETWEEN 1 AND 5),
    created_at DATETIME NOT NULL,
    last_reviewed DATETIME,
    review_count INTEGER NOT NULL DEFAULT 0
);

-- 'sequences' hands out card ids; the counter never goes back, so ids are not reused.
CREATE TABLE IF NOT EXISTS sequences (
    name TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);
INSERT OR IGNORE INTO sequences (name, value) VALUES ('cards', 0);

-- 'review_logs' keeps one row per review.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL,
    correct INTEGER NOT NULL,
    from_box INTEGER NOT NULL,
    to_box INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS review_logs_card_id ON review_logs(card_id);

-- The 'sources' table tracks where imported decks come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);

-- 'card_origins' links imported cards to their source and content fingerprint.
CREATE TABLE IF NOT EXISTS card_origins (
    card_id INTEGER PRIMARY KEY,
    source_id INTEGER NOT NULL,
    hash TEXT NOT NULL,
    UNIQUE (source_id, hash)
);
`
