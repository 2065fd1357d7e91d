package models

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var end = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewValidates(t *testing.T) {
	_, err := New("c", "m", end, "", 0)
	assert.ErrorIs(t, err, ErrInvalidWinnersCount)

	_, err = New("c", "m", end, "", 16)
	assert.ErrorIs(t, err, ErrInvalidWinnersCount)

	_, err = New("c", "m", end, strings.Repeat("x", 501), 1)
	assert.ErrorIs(t, err, ErrPrizeTooLong)

	_, err = New("", "m", end, "", 1)
	assert.Error(t, err)

	g, err := New("c", "m", end, "two\r\nlines", 15)
	require.NoError(t, err)
	assert.Equal(t, "two lines", g.Prize)
	assert.Equal(t, StatusActive, g.Status())
	assert.Equal(t, Key{ChannelID: "c", MessageID: "m"}, g.Key())

	g, err = New("c", "m", end, " \n ", 3)
	require.NoError(t, err)
	assert.Empty(t, g.Prize)
}

func TestBeginEndingOnlyOnce(t *testing.T) {
	g, err := New("c", "m", end, "", 1)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.BeginEnding() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, StatusEnding, g.Status())
	g.MarkEnded()
	assert.Equal(t, "ended", g.Status().String())
	assert.False(t, g.BeginEnding())
}

func TestAbortEndingAllowsRetry(t *testing.T) {
	g, err := New("c", "m", end, "", 1)
	require.NoError(t, err)

	assert.False(t, g.AbortEnding())
	require.True(t, g.BeginEnding())
	assert.True(t, g.AbortEnding())
	assert.Equal(t, StatusActive, g.Status())

	require.True(t, g.BeginEnding())
	g.MarkEnded()
	assert.False(t, g.AbortEnding())
	assert.Equal(t, StatusEnded, g.Status())
}

func TestRemaining(t *testing.T) {
	g, err := New("c", "m", end, "", 1)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, g.Remaining(end.Add(-time.Minute)))
	assert.Zero(t, g.Remaining(end.Add(time.Second)))
}
