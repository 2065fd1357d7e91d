package dialogue

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/open-builders/giveaway-bot/internal/common/errors"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr error
	}{
		{"2M", 2 * time.Minute, nil},
		{"2m", 2 * time.Minute, nil},
		{"90S", 90 * time.Second, nil},
		{"90", 90 * time.Second, nil},
		{" 45 s ", 45 * time.Second, nil},
		{"10", 10 * time.Second, nil},
		{"604800", 7 * 24 * time.Hour, nil},
		{"10080M", 7 * 24 * time.Hour, nil},
		{"5", 0, ErrDurationOutOfRange},
		{"9", 0, ErrDurationOutOfRange},
		{"604801", 0, ErrDurationOutOfRange},
		{"10081M", 0, ErrDurationOutOfRange},
		{"-30", 0, ErrDurationOutOfRange},
		{"99999999999999M", 0, ErrDurationOutOfRange},
		{"abc", 0, ErrNotANumber},
		{"", 0, ErrNotANumber},
		{"1h", 0, ErrNotANumber},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWinnerCount(t *testing.T) {
	for _, in := range []string{"1", " 7 ", "15"} {
		_, err := ParseWinnerCount(in)
		assert.NoError(t, err, in)
	}
	for _, in := range []string{"0", "16", "-1"} {
		_, err := ParseWinnerCount(in)
		assert.ErrorIs(t, err, ErrWinnersOutOfRange, in)
	}
	_, err := ParseWinnerCount("three")
	assert.ErrorIs(t, err, ErrNotANumber)
}

func TestValidatePrize(t *testing.T) {
	_, err := ValidatePrize(strings.Repeat("a", 500))
	assert.NoError(t, err)

	_, err = ValidatePrize(strings.Repeat("é", 500))
	assert.NoError(t, err)

	_, err = ValidatePrize(strings.Repeat("a", 501))
	assert.ErrorIs(t, err, models.ErrPrizeTooLong)

	got, err := ValidatePrize("")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestIsCancel(t *testing.T) {
	assert.True(t, IsCancel("cancel"))
	assert.True(t, IsCancel("CANCEL"))
	assert.True(t, IsCancel(" Cancel "))
	assert.False(t, IsCancel("cancel please"))
}

func TestChannelQuery(t *testing.T) {
	assert.Equal(t, "general", ChannelQuery("#general"))
	assert.Equal(t, "give_aways", ChannelQuery(" give aways "))
}
