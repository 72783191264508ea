// Package leitner implements the Leitner box review model: the box registry
// and the engine that keeps cards and their boxes in step.
package leitner

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/liftingwater/MemoryVault/internal/domain"
)

// Collection is the card store the engine reads and writes.
// FindByID, Update and Remove return domain.ErrCardNotFound for unknown ids.
type Collection interface {
	FindByID(id int64) (*domain.Card, error)
	Add(card *domain.Card) error
	Update(card *domain.Card) error
	Remove(id int64) error
	All() ([]*domain.Card, error)
}

// IDAllocator hands out card ids. Ids must increase monotonically and never repeat.
type IDAllocator interface {
	NextID() (int64, error)
}

// History stores review logs.
type History interface {
	RecordReview(log domain.ReviewLog) error
	ReviewsFor(cardID int64) ([]domain.ReviewLog, error)
}

// ReviewResult describes a completed review.
type ReviewResult struct {
	Card   *domain.Card
	OldBox int
	NewBox int
}

// BoxSummary lists the cards of one box in bucket order.
type BoxSummary struct {
	Number int
	Count  int // ids held by the registry for this box
	Cards  []*domain.Card
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used for registry inconsistencies.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithHistory records every review in h.
func WithHistory(h History) Option {
	return func(e *Engine) { e.history = h }
}

// Engine applies create, edit, review and delete to a collection and its box
// registry. Each operation holds the engine lock for its whole duration, so
// the registry is never observed out of step with the cards.
type Engine struct {
	mu      sync.Mutex
	cards   Collection
	boxes   *Registry
	ids     IDAllocator
	history History
	now     func() time.Time
	logger  *slog.Logger
}

// NewEngine builds an engine over cards and fills the registry from the
// cards already stored, in id order.
func NewEngine(cards Collection, ids IDAllocator, opts ...Option) (*Engine, error) {
	e := &Engine{
		cards:  cards,
		boxes:  NewRegistry(),
		ids:    ids,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "leitner")

	existing, err := cards.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].ID < existing[j].ID })
	for _, card := range existing {
		if err := e.boxes.Assign(card.ID, card.Box); err != nil {
			return nil, fmt.Errorf("failed to place card %d: %w", card.ID, err)
		}
	}
	e.logger.Debug("box registry loaded", "cards", len(existing))
	return e, nil
}

// CreateCard stores a new card in the first box.
func (e *Engine) CreateCard(front, back domain.Content) (*domain.Card, error) {
	if err := domain.ValidateSides(&front, &back); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate card id: %w", err)
	}
	card, err := domain.NewCard(id, front, back, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.cards.Add(card); err != nil {
		return nil, fmt.Errorf("failed to add card %d: %w", id, err)
	}
	if err := e.boxes.Assign(id, card.Box); err != nil {
		e.logger.Warn("registry inconsistency on create", "card_id", id, "box", card.Box, "error", err)
	}
	return card.Clone(), nil
}

// EditCard replaces the non-nil sides of a card.
func (e *Engine) EditCard(id int64, front, back *domain.Content) (*domain.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	card, err := e.cards.FindByID(id)
	if err != nil {
		return nil, err
	}
	if err := card.Edit(front, back); err != nil {
		return nil, err
	}
	if err := e.cards.Update(card); err != nil {
		return nil, fmt.Errorf("failed to update card %d: %w", id, err)
	}
	return card.Clone(), nil
}

// ReviewCard records an answer for a card and moves it to its new box.
func (e *Engine) ReviewCard(id int64, correct bool) (ReviewResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	card, err := e.cards.FindByID(id)
	if err != nil {
		return ReviewResult{}, err
	}

	oldBox := card.Box
	reviewedAt := e.now()
	newBox := card.Review(correct, reviewedAt)

	if err := e.cards.Update(card); err != nil {
		return ReviewResult{}, fmt.Errorf("failed to update card %d: %w", id, err)
	}

	found, err := e.boxes.Relocate(id, oldBox, newBox)
	if err != nil {
		e.logger.Warn("registry inconsistency on review", "card_id", id, "from", oldBox, "to", newBox, "error", err)
	} else if !found {
		e.logger.Warn("card missing from its box during review", "card_id", id, "box", oldBox)
	}

	if e.history != nil {
		entry := domain.ReviewLog{
			CardID:     id,
			ReviewedAt: reviewedAt,
			Correct:    correct,
			FromBox:    oldBox,
			ToBox:      newBox,
		}
		if err := e.history.RecordReview(entry); err != nil {
			e.logger.Error("failed to record review", "card_id", id, "error", err)
		}
	}

	e.logger.Debug("card reviewed", "card_id", id, "correct", correct, "from", oldBox, "to", newBox)
	return ReviewResult{Card: card.Clone(), OldBox: oldBox, NewBox: newBox}, nil
}

// DeleteCard removes a card and purges its id from every box.
func (e *Engine) DeleteCard(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.cards.Remove(id); err != nil {
		return err
	}
	if n := e.boxes.Remove(id); n != 1 {
		e.logger.Warn("unexpected box entries on delete", "card_id", id, "entries", n)
	}
	return nil
}

// Card returns a copy of the card with the given id.
func (e *Engine) Card(id int64) (*domain.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cards.FindByID(id)
}

// Cards returns every card ordered by id.
func (e *Engine) Cards() ([]*domain.Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cards, err := e.cards.All()
	if err != nil {
		return nil, err
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

// BoxCards returns the cards of one box in bucket order.
func (e *Engine) BoxCards(box int) ([]*domain.Card, error) {
	if err := checkBox(box); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.boxCards(box)
}

func (e *Engine) boxCards(box int) ([]*domain.Card, error) {
	ids := e.boxes.Snapshot(box)
	cards := make([]*domain.Card, 0, len(ids))
	for _, id := range ids {
		card, err := e.cards.FindByID(id)
		if errors.Is(err, domain.ErrCardNotFound) {
			e.logger.Warn("box holds unknown card", "card_id", id, "box", box)
			continue
		}
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// Boxes returns every box with its cards.
func (e *Engine) Boxes() ([]BoxSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := e.boxes.Counts()
	summaries := make([]BoxSummary, 0, domain.MaxBox)
	for box := domain.MinBox; box <= domain.MaxBox; box++ {
		cards, err := e.boxCards(box)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, BoxSummary{Number: box, Count: counts[box], Cards: cards})
	}
	return summaries, nil
}

// Counts returns the number of cards held per box.
func (e *Engine) Counts() map[int]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.boxes.Counts()
}

// Reviews returns the review log of a card. It returns nil when no history is configured.
func (e *Engine) Reviews(id int64) ([]domain.ReviewLog, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.cards.FindByID(id); err != nil {
		return nil, err
	}
	if e.history == nil {
		return nil, nil
	}
	return e.history.ReviewsFor(id)
}

// Verify checks that every card sits in exactly the bucket for its box and
// that no bucket holds an unknown id.
func (e *Engine) Verify() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cards, err := e.cards.All()
	if err != nil {
		return err
	}

	var errs []error
	live := make(map[int64]struct{}, len(cards))
	for _, card := range cards {
		live[card.ID] = struct{}{}
		boxes := e.boxes.Locate(card.ID)
		if len(boxes) != 1 || boxes[0] != card.Box {
			errs = append(errs, fmt.Errorf("%w: card %d in box %d found in buckets %v",
				ErrRegistryInconsistent, card.ID, card.Box, boxes))
		}
	}
	for _, id := range e.boxes.IDs() {
		if _, ok := live[id]; !ok {
			errs = append(errs, fmt.Errorf("%w: unknown card %d", ErrRegistryInconsistent, id))
		}
	}
	return errors.Join(errs...)
}
