package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/repository"
)

func openStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	ended := models.EndedGiveaway{
		ChannelID:   "c1",
		MessageID:   "m1",
		EndTime:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		WinnerCount: 2,
		Prize:       "Steam key",
		Winners:     []string{"u1", "u2"},
		EndedAt:     time.Date(2026, 5, 1, 12, 0, 1, 0, time.UTC),
	}

	require.NoError(t, s.Record(ctx, ended))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ended.EndTime.Equal(got.EndTime))
	assert.True(t, ended.EndedAt.Equal(got.EndedAt))
	assert.Equal(t, ended.ChannelID, got.ChannelID)
	assert.Equal(t, ended.WinnerCount, got.WinnerCount)
	assert.Equal(t, ended.Prize, got.Prize)
	assert.Equal(t, ended.Winners, got.Winners)
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrGiveawayNotFound)
}

func TestUpdateWinners(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, models.EndedGiveaway{ChannelID: "c", MessageID: "m", WinnerCount: 1}))

	require.NoError(t, s.UpdateWinners(ctx, "m", []string{"u9"}))
	got, err := s.Get(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"u9"}, got.Winners)

	require.ErrorIs(t, s.UpdateWinners(ctx, "other", nil), repository.ErrGiveawayNotFound)
}

func TestRecordNoWinners(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, models.EndedGiveaway{ChannelID: "c", MessageID: "m", WinnerCount: 1}))

	got, err := s.Get(ctx, "m")
	require.NoError(t, err)
	assert.Empty(t, got.Winners)
}
