package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/open-builders/giveaway-bot/internal/common/errors"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/repository"
)

func TestStartRegistersAndRenders(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 1)

	require.NoError(t, f.lifecycle.Start(context.Background(), g))

	assert.Equal(t, 1, f.registry.Len())
	assert.Equal(t, 1, f.messenger.editCount("m1"))
	assert.Contains(t, f.messenger.content("m1"), "Time remaining: 1 minute")
}

func TestStartRejectsDuplicate(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	require.NoError(t, f.lifecycle.Start(context.Background(), f.giveaway("m1", time.Minute, 1)))

	err := f.lifecycle.Start(context.Background(), f.giveaway("m1", time.Minute, 1))

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.CodeOf(err))
	assert.Equal(t, 1, f.registry.Len())
}

func TestRenderMarksDeletedMessageUnreachable(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 1)
	require.NoError(t, f.registry.Add(g))
	f.messenger.delete("m1")

	f.lifecycle.Render(context.Background(), g)

	assert.True(t, g.Unreachable())
	assert.Equal(t, models.StatusActive, g.Status())
}

func TestEndAnnouncesWinnersAndRecordsHistory(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 2)
	require.NoError(t, f.registry.Add(g))
	f.messenger.setEntrants("m1", botID, "u1", "u2")

	require.NoError(t, f.lifecycle.End(context.Background(), g))

	assert.Equal(t, models.StatusEnded, g.Status())
	assert.Zero(t, f.registry.Len())
	assert.Contains(t, f.messenger.content("m1"), "Winners: ")

	sent := f.messenger.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "c1", sent[0].ChannelID)
	assert.Contains(t, sent[0].Content, "<@u1>")
	assert.Contains(t, sent[0].Content, "<@u2>")
	assert.NotContains(t, sent[0].Content, "<@bot>")
	assert.Contains(t, sent[0].Content, "Nitro")

	ended, err := f.history.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, ended.Winners)
	assert.Equal(t, epoch, ended.EndedAt)
}

func TestEndWithNoEntrants(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 1)
	require.NoError(t, f.registry.Add(g))
	f.messenger.setEntrants("m1", botID)

	require.NoError(t, f.lifecycle.End(context.Background(), g))

	assert.Contains(t, f.messenger.content("m1"), "Could not determine a winner!")
	sent := f.messenger.sentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Content, "could not be determined")
}

func TestEndRunsOnceUnderConcurrency(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 1)
	require.NoError(t, f.registry.Add(g))
	f.messenger.setEntrants("m1", "u1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.lifecycle.End(context.Background(), g)
		}()
	}
	wg.Wait()

	assert.Len(t, f.messenger.sentMessages(), 1)
	assert.Equal(t, 1, f.messenger.editCount("m1"))
}

func TestEndUnreachableSkipsAnnouncement(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 1)
	require.NoError(t, f.registry.Add(g))
	g.MarkUnreachable()

	require.NoError(t, f.lifecycle.End(context.Background(), g))

	assert.Empty(t, f.messenger.sentMessages())
	assert.Zero(t, f.registry.Len())
}

func TestEndListFailureKeepsGiveawayActive(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 1)
	require.NoError(t, f.registry.Add(g))
	f.messenger.setEntrants("m1", "u1")
	f.messenger.setListErr(errTransport)

	err := f.lifecycle.End(context.Background(), g)

	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, apperrors.ErrCodeTransport, apperrors.CodeOf(err))
	assert.Equal(t, models.StatusActive, g.Status())
	assert.Equal(t, 1, f.registry.Len())
	assert.Empty(t, f.messenger.sentMessages())
	_, err = f.history.Get(context.Background(), "m1")
	assert.ErrorIs(t, err, repository.ErrGiveawayNotFound)

	f.messenger.setListErr(nil)
	require.NoError(t, f.lifecycle.End(context.Background(), g))

	assert.Equal(t, models.StatusEnded, g.Status())
	assert.Zero(t, f.registry.Len())
	require.Len(t, f.messenger.sentMessages(), 1)
	assert.Contains(t, f.messenger.sentMessages()[0].Content, "<@u1>")
}

func TestEndCompletesAfterCallerCancels(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 1)
	require.NoError(t, f.registry.Add(g))
	f.messenger.setEntrants("m1", "u1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.lifecycle.End(ctx, g))

	assert.Equal(t, models.StatusEnded, g.Status())
	assert.Zero(t, f.registry.Len())
	assert.Len(t, f.messenger.sentMessages(), 1)
	_, err := f.history.Get(context.Background(), "m1")
	assert.NoError(t, err)
}

func TestEndAnnouncementFailureStillRemoves(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 1)
	require.NoError(t, f.registry.Add(g))
	f.messenger.setEntrants("m1", "u1")
	f.messenger.sendErr = errTransport
	f.messenger.editErr = errTransport

	require.NoError(t, f.lifecycle.End(context.Background(), g))

	assert.Equal(t, models.StatusEnded, g.Status())
	assert.Zero(t, f.registry.Len())
}

func TestForceEnd(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Hour, 1)
	require.NoError(t, f.registry.Add(g))
	f.messenger.setEntrants("m1", "u1")

	require.NoError(t, f.lifecycle.ForceEnd(context.Background(), "m1"))
	assert.Equal(t, models.StatusEnded, g.Status())

	err := f.lifecycle.ForceEnd(context.Background(), "m1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, repository.ErrGiveawayNotFound)
}

func TestRerollDrawsAgain(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	g := f.giveaway("m1", time.Minute, 1)
	require.NoError(t, f.registry.Add(g))
	f.messenger.setEntrants("m1", "u1")
	require.NoError(t, f.lifecycle.End(context.Background(), g))

	f.messenger.setEntrants("m1", botID, "u1")
	winners, err := f.lifecycle.Reroll(context.Background(), "m1")

	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, winners)
	assert.Len(t, f.messenger.sentMessages(), 2)
}

func TestRerollExcludesPreviousWinnersWhenConfigured(t *testing.T) {
	f := newFixture(LifecycleOptions{RerollExcludePrevious: true})
	g := f.giveaway("m1", time.Minute, 1)
	require.NoError(t, f.registry.Add(g))
	f.messenger.setEntrants("m1", "u1")
	require.NoError(t, f.lifecycle.End(context.Background(), g))

	f.messenger.setEntrants("m1", "u1", "u2")
	winners, err := f.lifecycle.Reroll(context.Background(), "m1")

	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, winners)

	ended, err := f.history.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, ended.Winners)
}

func TestRerollUnknownMessage(t *testing.T) {
	f := newFixture(LifecycleOptions{})

	_, err := f.lifecycle.Reroll(context.Background(), "nope")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestRerollSendFailure(t *testing.T) {
	f := newFixture(LifecycleOptions{})
	require.NoError(t, f.history.Record(context.Background(), models.EndedGiveaway{
		ChannelID: "c1", MessageID: "m1", WinnerCount: 1,
	}))
	f.messenger.setEntrants("m1", "u1")
	f.messenger.sendErr = errTransport

	_, err := f.lifecycle.Reroll(context.Background(), "m1")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTransport, apperrors.CodeOf(err))
}
