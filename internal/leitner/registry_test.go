package leitner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftingwater/MemoryVault/internal/domain"
)

func TestRegistryAssign(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Assign(1, 1))
	require.NoError(t, r.Assign(2, 1))
	require.NoError(t, r.Assign(3, 4))

	assert.Equal(t, []int64{1, 2}, r.Snapshot(1))
	assert.Equal(t, []int64{3}, r.Snapshot(4))
	assert.Empty(t, r.Snapshot(5))

	assert.ErrorIs(t, r.Assign(2, 1), ErrDuplicateAssignment)
	assert.ErrorIs(t, r.Assign(9, 0), domain.ErrInvalidBox)
	assert.ErrorIs(t, r.Assign(9, 6), domain.ErrInvalidBox)
}

func TestRegistryRelocate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Assign(1, 2))
	require.NoError(t, r.Assign(2, 3))

	found, err := r.Relocate(1, 2, 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, r.Snapshot(2))
	assert.Equal(t, []int64{2, 1}, r.Snapshot(3))

	t.Run("same box moves to the back", func(t *testing.T) {
		found, err := r.Relocate(2, 3, 3)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []int64{1, 2}, r.Snapshot(3))
	})

	t.Run("missing source still appends", func(t *testing.T) {
		found, err := r.Relocate(7, 4, 1)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, []int64{7}, r.Snapshot(1))
	})

	t.Run("destination already holds id", func(t *testing.T) {
		found, err := r.Relocate(7, 5, 1)
		assert.False(t, found)
		assert.ErrorIs(t, err, ErrDuplicateAssignment)
		assert.Equal(t, []int64{7}, r.Snapshot(1))
	})

	t.Run("invalid boxes", func(t *testing.T) {
		_, err := r.Relocate(1, 0, 2)
		assert.ErrorIs(t, err, domain.ErrInvalidBox)
		_, err = r.Relocate(1, 3, 6)
		assert.ErrorIs(t, err, domain.ErrInvalidBox)
		assert.Equal(t, []int64{1, 2}, r.Snapshot(3))
	})
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Assign(1, 1))
	require.NoError(t, r.Assign(2, 1))
	// a corrupted registry holding the same id in two buckets
	require.NoError(t, r.Assign(1, 5))

	assert.Equal(t, []int{1, 5}, r.Locate(1))
	assert.Equal(t, 2, r.Remove(1))
	assert.Empty(t, r.Locate(1))
	assert.Equal(t, []int64{2}, r.Snapshot(1))
	assert.Equal(t, 0, r.Remove(1))
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Assign(1, 1))

	snap := r.Snapshot(1)
	snap[0] = 99
	assert.Equal(t, []int64{1}, r.Snapshot(1))
	assert.Nil(t, r.Snapshot(0))
}

func TestRegistryCounts(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Assign(1, 1))
	require.NoError(t, r.Assign(2, 3))
	require.NoError(t, r.Assign(3, 3))

	assert.Equal(t, map[int]int{1: 1, 2: 0, 3: 2, 4: 0, 5: 0}, r.Counts())
	assert.Equal(t, []int64{1, 2, 3}, r.IDs())
}
