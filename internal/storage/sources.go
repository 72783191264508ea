package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSourceNotFound is returned when no source has the requested id.
var ErrSourceNotFound = errors.New("source not found")

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source represents a deck source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// Origin links an imported card to its source and content fingerprint.
type Origin struct {
	CardID   int64
	SourceID int64
	Hash     string
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
// It returns nil when no source has that path.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64, at time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, at, sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source and forgets the origins of its cards.
// The cards themselves stay in their boxes.
func (db *DB) DeleteSource(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete of source %d: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM card_origins WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete origins of source %d: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows for source %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrSourceNotFound, id)
	}
	return tx.Commit()
}

// InsertOrigin records that a card was imported from a source.
func (db *DB) InsertOrigin(o Origin) error {
	_, err := db.conn.Exec(`
		INSERT INTO card_origins (card_id, source_id, hash)
		VALUES (?, ?, ?)
	`, o.CardID, o.SourceID, o.Hash)
	if err != nil {
		return fmt.Errorf("failed to insert origin for card %d: %w", o.CardID, err)
	}
	return nil
}

// GetOriginsBySourceID retrieves the origins of every card imported from a source.
func (db *DB) GetOriginsBySourceID(sourceID int64) ([]Origin, error) {
	rows, err := db.conn.Query(`
		SELECT card_id, source_id, hash
		FROM card_origins WHERE source_id = ?
		ORDER BY card_id
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get origins for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var origins []Origin
	for rows.Next() {
		var o Origin
		if err := rows.Scan(&o.CardID, &o.SourceID, &o.Hash); err != nil {
			return nil, fmt.Errorf("failed to scan origin row for source ID %d: %w", sourceID, err)
		}
		origins = append(origins, o)
	}
	return origins, rows.Err()
}

// DeleteOrigin forgets where a card came from.
func (db *DB) DeleteOrigin(cardID int64) error {
	if _, err := db.conn.Exec(`DELETE FROM card_origins WHERE card_id = ?`, cardID); err != nil {
		return fmt.Errorf("failed to delete origin of card %d: %w", cardID, err)
	}
	return nil
}
