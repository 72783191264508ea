package leitner

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/liftingwater/MemoryVault/internal/domain"
)

// Sequence is an in-process IDAllocator. Ids start at 1 and are never reused.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a sequence whose first id is after+1.
func NewSequence(after int64) *Sequence {
	s := &Sequence{}
	s.last.Store(after)
	return s
}

// NextID returns the next id.
func (s *Sequence) NextID() (int64, error) {
	return s.last.Add(1), nil
}

// MemoryCollection keeps cards in a map. It stores and hands out clones so
// callers only change it through Add, Update and Remove.
type MemoryCollection struct {
	mu    sync.RWMutex
	cards map[int64]*domain.Card
}

// NewMemoryCollection returns an empty collection.
func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{cards: make(map[int64]*domain.Card)}
}

// FindByID returns a copy of the card with the given id.
func (m *MemoryCollection) FindByID(id int64) (*domain.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	card, ok := m.cards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrCardNotFound, id)
	}
	return card.Clone(), nil
}

// Add stores a new card. Adding an id twice is an error.
func (m *MemoryCollection) Add(card *domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cards[card.ID]; ok {
		return fmt.Errorf("card %d already exists", card.ID)
	}
	m.cards[card.ID] = card.Clone()
	return nil
}

// Update replaces a stored card.
func (m *MemoryCollection) Update(card *domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cards[card.ID]; !ok {
		return fmt.Errorf("%w: %d", domain.ErrCardNotFound, card.ID)
	}
	m.cards[card.ID] = card.Clone()
	return nil
}

// Remove deletes the card with the given id.
func (m *MemoryCollection) Remove(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cards[id]; !ok {
		return fmt.Errorf("%w: %d", domain.ErrCardNotFound, id)
	}
	delete(m.cards, id)
	return nil
}

// All returns the cards ordered by id.
func (m *MemoryCollection) All() ([]*domain.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(m.cards))
	cards := make([]*domain.Card, 0, len(ids))
	for _, id := range ids {
		cards = append(cards, m.cards[id].Clone())
	}
	return cards, nil
}

// MemoryHistory keeps review logs in process, grouped by card.
type MemoryHistory struct {
	mu   sync.Mutex
	logs map[int64][]domain.ReviewLog
}

// NewMemoryHistory returns an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{logs: make(map[int64][]domain.ReviewLog)}
}

// RecordReview appends a review to the card's log.
func (h *MemoryHistory) RecordReview(log domain.ReviewLog) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logs[log.CardID] = append(h.logs[log.CardID], log)
	return nil
}

// ReviewsFor returns the reviews of a card, oldest first.
func (h *MemoryHistory) ReviewsFor(cardID int64) ([]domain.ReviewLog, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return slices.Clone(h.logs[cardID]), nil
}
