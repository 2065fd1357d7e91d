package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

func newGiveaway(t *testing.T, channelID, messageID string) *models.Giveaway {
	t.Helper()
	g, err := models.New(channelID, messageID, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), "prize", 1)
	require.NoError(t, err)
	return g
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(newGiveaway(t, "c1", "m1")))

	err := r.Add(newGiveaway(t, "c1", "m1"))
	require.ErrorIs(t, err, ErrDuplicateGiveaway)
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySnapshotKeepsOrderAndIsACopy(t *testing.T) {
	r := NewRegistry()
	a, b, c := newGiveaway(t, "c", "1"), newGiveaway(t, "c", "2"), newGiveaway(t, "c", "3")
	for _, g := range []*models.Giveaway{a, b, c} {
		require.NoError(t, r.Add(g))
	}

	snap := r.Snapshot()
	require.True(t, r.Remove(b))

	assert.Equal(t, []*models.Giveaway{a, b, c}, snap)
	assert.Equal(t, []*models.Giveaway{a, c}, r.Snapshot())
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	g := newGiveaway(t, "c", "1")
	require.NoError(t, r.Add(g))

	assert.True(t, r.Remove(g))
	assert.False(t, r.Remove(g))
}

func TestRegistryFind(t *testing.T) {
	r := NewRegistry()
	g := newGiveaway(t, "c", "42")
	require.NoError(t, r.Add(g))

	got, ok := r.FindByChannelAndMessage("c", "42")
	require.True(t, ok)
	assert.Same(t, g, got)

	_, ok = r.FindByChannelAndMessage("other", "42")
	assert.False(t, ok)

	got, ok = r.FindByMessage("42")
	require.True(t, ok)
	assert.Same(t, g, got)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			g := newGiveaway(t, "c", time.Duration(i).String())
			_ = r.Add(g)
			r.Remove(g)
		}(i)
		go func() {
			defer wg.Done()
			_ = r.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}

func TestMemoryHistoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	h := NewMemoryHistory(2)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, h.Record(ctx, models.EndedGiveaway{MessageID: id, Winners: []string{"u" + id}}))
	}

	_, err := h.Get(ctx, "1")
	require.ErrorIs(t, err, ErrGiveawayNotFound)

	require.NoError(t, h.UpdateWinners(ctx, "3", []string{"x"}))
	got, err := h.Get(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.Winners)
}
