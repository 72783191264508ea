package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// MinBox is the box every new card starts in and every missed card returns to.
	MinBox = 1
	// MaxBox is the last box; correct answers saturate here.
	MaxBox = 5
)

// legacyTimeLayout is the naive ISO-8601 form written by the first version of the app.
const legacyTimeLayout = "2006-01-02T15:04:05.999999"

// ValidBox reports whether box is within MinBox..MaxBox.
func ValidBox(box int) bool {
	return box >= MinBox && box <= MaxBox
}

// Card is a two-sided flashcard and its position in the Leitner boxes.
type Card struct {
	ID           int64
	Front        Content
	Back         Content
	Box          int
	CreatedAt    time.Time
	LastReviewed *time.Time // nil until the first review
	ReviewCount  int
}

// NewCard builds a card in the first box. Both sides must be valid content.
func NewCard(id int64, front, back Content, now time.Time) (*Card, error) {
	if err := ValidateSides(&front, &back); err != nil {
		return nil, err
	}
	return &Card{
		ID:        id,
		Front:     front,
		Back:      back,
		Box:       MinBox,
		CreatedAt: now,
	}, nil
}

// NewTextCard is NewCard for plain text sides.
func NewTextCard(id int64, front, back string, now time.Time) (*Card, error) {
	return NewCard(id, Text(front), Text(back), now)
}

// Edit replaces the sides that are non-nil. Box and review fields are left alone.
func (c *Card) Edit(front, back *Content) error {
	if err := ValidateSides(front, back); err != nil {
		return err
	}
	if front != nil {
		c.Front = *front
	}
	if back != nil {
		c.Back = *back
	}
	return nil
}

// ValidateSides checks the non-nil sides of a card.
func ValidateSides(front, back *Content) error {
	for _, side := range []struct {
		name    string
		content *Content
	}{{"front", front}, {"back", back}} {
		switch {
		case side.content == nil:
		case side.content.IsZero():
			return fmt.Errorf("%w: %s cannot be empty", ErrValidation, side.name)
		case !side.content.Valid():
			return fmt.Errorf("%w: %s has unknown content type %q", ErrValidation, side.name, side.content.Kind)
		}
	}
	return nil
}

// Review applies one answer and returns the new box. A correct answer moves the
// card up one box, stopping at MaxBox; a miss sends it back to MinBox.
func (c *Card) Review(correct bool, now time.Time) int {
	if correct {
		c.Box = min(c.Box+1, MaxBox)
	} else {
		c.Box = MinBox
	}
	c.LastReviewed = &now
	c.ReviewCount++
	return c.Box
}

// Clone returns a deep copy of c.
func (c *Card) Clone() *Card {
	cp := *c
	if c.LastReviewed != nil {
		t := *c.LastReviewed
		cp.LastReviewed = &t
	}
	return &cp
}

// ReviewLog records a single review event for a card.
type ReviewLog struct {
	CardID     int64     `json:"card_id"`
	ReviewedAt time.Time `json:"reviewed_at"`
	Correct    bool      `json:"correct"`
	FromBox    int       `json:"from_box"`
	ToBox      int       `json:"to_box"`
}

type cardJSON struct {
	ID           *int64   `json:"id"`
	Front        *Content `json:"front"`
	Back         *Content `json:"back"`
	Box          *int     `json:"box"`
	CreatedAt    *string  `json:"created_at"`
	LastReviewed *string  `json:"last_reviewed"`
	ReviewCount  int      `json:"review_count"`
}

// MarshalJSON encodes the card in its wire shape. last_reviewed is null until
// the first review.
func (c Card) MarshalJSON() ([]byte, error) {
	created := c.CreatedAt.Format(time.RFC3339Nano)
	out := cardJSON{
		ID:          &c.ID,
		Front:       &c.Front,
		Back:        &c.Back,
		Box:         &c.Box,
		CreatedAt:   &created,
		ReviewCount: c.ReviewCount,
	}
	if c.LastReviewed != nil {
		reviewed := c.LastReviewed.Format(time.RFC3339Nano)
		out.LastReviewed = &reviewed
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a card, rejecting records that would break box placement.
func (c *Card) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCard(data)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// ParseCard decodes and validates a serialized card. Sides given as bare
// strings are read as text.
func ParseCard(data []byte) (*Card, error) {
	var in cardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCard, err)
	}

	switch {
	case in.ID == nil:
		return nil, fmt.Errorf("%w: missing id", ErrMalformedCard)
	case in.Front == nil:
		return nil, fmt.Errorf("%w: missing front", ErrMalformedCard)
	case in.Back == nil:
		return nil, fmt.Errorf("%w: missing back", ErrMalformedCard)
	case in.Box == nil:
		return nil, fmt.Errorf("%w: missing box", ErrMalformedCard)
	case in.CreatedAt == nil:
		return nil, fmt.Errorf("%w: missing created_at", ErrMalformedCard)
	}
	if !ValidBox(*in.Box) {
		return nil, fmt.Errorf("%w: box %d outside %d..%d", ErrMalformedCard, *in.Box, MinBox, MaxBox)
	}
	if in.ReviewCount < 0 {
		return nil, fmt.Errorf("%w: negative review_count", ErrMalformedCard)
	}
	if (in.LastReviewed != nil) != (in.ReviewCount > 0) {
		return nil, fmt.Errorf("%w: last_reviewed must be set iff review_count > 0", ErrMalformedCard)
	}

	created, err := parseTimestamp(*in.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %w", ErrMalformedCard, err)
	}
	card := &Card{
		ID:          *in.ID,
		Front:       *in.Front,
		Back:        *in.Back,
		Box:         *in.Box,
		CreatedAt:   created,
		ReviewCount: in.ReviewCount,
	}
	if in.LastReviewed != nil {
		reviewed, err := parseTimestamp(*in.LastReviewed)
		if err != nil {
			return nil, fmt.Errorf("%w: last_reviewed: %w", ErrMalformedCard, err)
		}
		card.LastReviewed = &reviewed
	}
	return card, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyTimeLayout, s, time.UTC)
}
