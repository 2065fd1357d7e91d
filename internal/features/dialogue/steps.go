package dialogue

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/open-builders/giveaway-bot/internal/common/errors"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

var (
	ErrNotANumber         = errors.New("not a number")
	ErrDurationOutOfRange = errors.New("duration out of range")
	ErrWinnersOutOfRange  = errors.New("winner count out of range")
)

const cancelKeyword = "cancel"

// IsCancel reports whether a reply aborts the dialogue.
func IsCancel(content string) bool {
	return strings.EqualFold(strings.TrimSpace(content), cancelKeyword)
}

// ParseDuration reads "2M" as minutes and "90S" or "90" as seconds. The result
// must lie within [models.MinDuration, models.MaxDuration].
func ParseDuration(input string) (time.Duration, error) {
	val := strings.ToUpper(strings.TrimSpace(input))
	unit := time.Second
	switch {
	case strings.HasSuffix(val, "M"):
		unit = time.Minute
		val = strings.TrimSpace(strings.TrimSuffix(val, "M"))
	case strings.HasSuffix(val, "S"):
		val = strings.TrimSpace(strings.TrimSuffix(val, "S"))
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, apperrors.NewInputError("duration", input, ErrNotANumber)
	}
	// Bound n before multiplying so huge inputs cannot overflow.
	if n < 0 || int64(n) > int64(models.MaxDuration/unit) {
		return 0, apperrors.NewInputError("duration", input, ErrDurationOutOfRange)
	}
	d := time.Duration(n) * unit
	if d < models.MinDuration || d > models.MaxDuration {
		return 0, apperrors.NewInputError("duration", input, ErrDurationOutOfRange)
	}
	return d, nil
}

// ParseWinnerCount reads an integer in [models.MinWinners, models.MaxWinners].
func ParseWinnerCount(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, apperrors.NewInputError("winner count", input, ErrNotANumber)
	}
	if n < models.MinWinners || n > models.MaxWinners {
		return 0, apperrors.NewInputError("winner count", input, ErrWinnersOutOfRange)
	}
	return n, nil
}

// ValidatePrize accepts any text up to models.MaxPrizeLength characters,
// including the empty string.
func ValidatePrize(input string) (string, error) {
	if utf8.RuneCountInString(input) > models.MaxPrizeLength {
		return "", apperrors.NewInputError("prize", "", models.ErrPrizeTooLong)
	}
	return input, nil
}

// ChannelQuery turns a typed channel name into a lookup key: spaces become
// underscores and a leading '#' is dropped.
func ChannelQuery(input string) string {
	q := strings.TrimPrefix(strings.TrimSpace(input), "#")
	return strings.ReplaceAll(q, " ", "_")
}
