package repository

import (
	"context"
	"errors"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound  = errors.New("giveaway not found")
	ErrDuplicateGiveaway = errors.New("giveaway already registered for this message")
)

// SnapshotStore holds the serialized set of active giveaways. Load returns
// nil data and no error when nothing has been saved yet.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// HistoryStore keeps ended giveaways so their winners can be rerolled.
type HistoryStore interface {
	Record(ctx context.Context, g models.EndedGiveaway) error
	Get(ctx context.Context, messageID string) (models.EndedGiveaway, error)
	UpdateWinners(ctx context.Context, messageID string, winners []string) error
}
