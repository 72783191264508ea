package leitner

import (
	"errors"
	"fmt"
	"slices"

	"github.com/liftingwater/MemoryVault/internal/domain"
)

var (
	// ErrDuplicateAssignment is returned when a card id is assigned to a bucket that already holds it.
	ErrDuplicateAssignment = errors.New("card already assigned to box")

	// ErrRegistryInconsistent is returned by Verify when the registry and the card
	// collection disagree about box membership.
	ErrRegistryInconsistent = errors.New("box registry inconsistent")
)

// Registry maps each box to the ordered ids of the cards it holds.
// Insertion order within a bucket is review order. It is not safe for
// concurrent use; Engine serialises access.
type Registry struct {
	buckets [domain.MaxBox + 1][]int64
}

// NewRegistry returns a registry with five empty buckets.
func NewRegistry() *Registry {
	return &Registry{}
}

func checkBox(box int) error {
	if !domain.ValidBox(box) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidBox, box)
	}
	return nil
}

// Assign appends id to the bucket for box.
func (r *Registry) Assign(id int64, box int) error {
	if err := checkBox(box); err != nil {
		return err
	}
	if slices.Contains(r.buckets[box], id) {
		return fmt.Errorf("%w: card %d in box %d", ErrDuplicateAssignment, id, box)
	}
	r.buckets[box] = append(r.buckets[box], id)
	return nil
}

// Relocate moves id from one bucket to the end of another. It reports whether
// id was found in the source bucket; a missing source entry does not stop the
// append.
func (r *Registry) Relocate(id int64, from, to int) (bool, error) {
	if err := checkBox(from); err != nil {
		return false, err
	}
	if err := checkBox(to); err != nil {
		return false, err
	}

	found := r.removeFrom(from, id)
	if slices.Contains(r.buckets[to], id) {
		return found, fmt.Errorf("%w: card %d in box %d", ErrDuplicateAssignment, id, to)
	}
	r.buckets[to] = append(r.buckets[to], id)
	return found, nil
}

// Remove drops id from every bucket and returns how many entries were removed.
func (r *Registry) Remove(id int64) int {
	removed := 0
	for box := domain.MinBox; box <= domain.MaxBox; box++ {
		for r.removeFrom(box, id) {
			removed++
		}
	}
	return removed
}

func (r *Registry) removeFrom(box int, id int64) bool {
	i := slices.Index(r.buckets[box], id)
	if i < 0 {
		return false
	}
	r.buckets[box] = slices.Delete(r.buckets[box], i, i+1)
	return true
}

// Snapshot returns a copy of the ids in box, in bucket order.
func (r *Registry) Snapshot(box int) []int64 {
	if !domain.ValidBox(box) {
		return nil
	}
	return slices.Clone(r.buckets[box])
}

// Counts returns the number of ids held per box.
func (r *Registry) Counts() map[int]int {
	counts := make(map[int]int, domain.MaxBox)
	for box := domain.MinBox; box <= domain.MaxBox; box++ {
		counts[box] = len(r.buckets[box])
	}
	return counts
}

// Locate returns every box whose bucket holds id. A consistent registry
// returns exactly one.
func (r *Registry) Locate(id int64) []int {
	var boxes []int
	for box := domain.MinBox; box <= domain.MaxBox; box++ {
		if slices.Contains(r.buckets[box], id) {
			boxes = append(boxes, box)
		}
	}
	return boxes
}

// IDs returns every id held in any bucket, box by box.
func (r *Registry) IDs() []int64 {
	var ids []int64
	for box := domain.MinBox; box <= domain.MaxBox; box++ {
		ids = append(ids, r.buckets[box]...)
	}
	return ids
}
