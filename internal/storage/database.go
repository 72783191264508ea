package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/liftingwater/MemoryVault/internal/domain"
)

// DB represents a wrapper around the SQL database connection.
// It implements leitner.Collection, leitner.IDAllocator and leitner.History.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// NextID advances the card id sequence.
func (db *DB) NextID() (int64, error) {
	var id int64
	err := db.conn.QueryRow(`
		UPDATE sequences SET value = value + 1
		WHERE name = 'cards'
		RETURNING value
	`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate card id: %w", err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (*domain.Card, error) {
	var (
		card         domain.Card
		front, back  string
		lastReviewed sql.NullTime
	)
	if err := row.Scan(&card.ID, &front, &back, &card.Box, &card.CreatedAt, &lastReviewed, &card.ReviewCount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(front), &card.Front); err != nil {
		return nil, fmt.Errorf("card %d front: %w", card.ID, err)
	}
	if err := json.Unmarshal([]byte(back), &card.Back); err != nil {
		return nil, fmt.Errorf("card %d back: %w", card.ID, err)
	}
	if !domain.ValidBox(card.Box) {
		return nil, fmt.Errorf("%w: card %d has box %d", domain.ErrMalformedCard, card.ID, card.Box)
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		card.LastReviewed = &t
	}
	return &card, nil
}

func encodeSides(card *domain.Card) (string, string, error) {
	front, err := json.Marshal(card.Front)
	if err != nil {
		return "", "", fmt.Errorf("card %d front: %w", card.ID, err)
	}
	back, err := json.Marshal(card.Back)
	if err != nil {
		return "", "", fmt.Errorf("card %d back: %w", card.ID, err)
	}
	return string(front), string(back), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// FindByID retrieves a card by its id.
func (db *DB) FindByID(id int64) (*domain.Card, error) {
	row := db.conn.QueryRow(`
		SELECT id, front, back, box, created_at, last_reviewed, review_count
		FROM cards WHERE id = ?
	`, id)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrCardNotFound, id)
		}
		return nil, fmt.Errorf("failed to find card %d: %w", id, err)
	}
	return card, nil
}

// Add inserts a new card.
func (db *DB) Add(card *domain.Card) error {
	front, back, err := encodeSides(card)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		INSERT INTO cards (id, front, back, box, created_at, last_reviewed, review_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		front,
		back,
		card.Box,
		card.CreatedAt,
		nullTime(card.LastReviewed),
		card.ReviewCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %d: %w", card.ID, err)
	}
	return nil
}

// Update writes every field of an existing card.
func (db *DB) Update(card *domain.Card) error {
	front, back, err := encodeSides(card)
	if err != nil {
		return err
	}
	res, err := db.conn.Exec(`
		UPDATE cards
		SET front = ?, back = ?, box = ?, last_reviewed = ?, review_count = ?
		WHERE id = ?
	`,
		front,
		back,
		card.Box,
		nullTime(card.LastReviewed),
		card.ReviewCount,
		card.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", card.ID, err)
	}
	return requireRow(res, card.ID)
}

// Remove deletes a card together with its origin record.
func (db *DB) Remove(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete of card %d: %w", id, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM card_origins WHERE card_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete origin of card %d: %w", id, err)
	}
	return tx.Commit()
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows for card %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", domain.ErrCardNotFound, id)
	}
	return nil
}

// All retrieves every card ordered by id.
func (db *DB) All() ([]*domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT id, front, back, box, created_at, last_reviewed, review_count
		FROM cards ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all cards: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// RecordReview appends a review log entry.
func (db *DB) RecordReview(log domain.ReviewLog) error {
	_, err := db.conn.Exec(`
		INSERT INTO review_logs (card_id, reviewed_at, correct, from_box, to_box)
		VALUES (?, ?, ?, ?, ?)
	`, log.CardID, log.ReviewedAt, log.Correct, log.FromBox, log.ToBox)
	if err != nil {
		return fmt.Errorf("failed to record review for card %d: %w", log.CardID, err)
	}
	return nil
}

// ReviewsFor returns the review log of a card, oldest first.
func (db *DB) ReviewsFor(cardID int64) ([]domain.ReviewLog, error) {
	rows, err := db.conn.Query(`
		SELECT card_id, reviewed_at, correct, from_box, to_box
		FROM review_logs WHERE card_id = ? ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for card %d: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		if err := rows.Scan(&l.CardID, &l.ReviewedAt, &l.Correct, &l.FromBox, &l.ToBox); err != nil {
			return nil, fmt.Errorf("failed to scan review row for card %d: %w", cardID, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
