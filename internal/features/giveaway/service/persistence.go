package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/giveaway-bot/internal/common/errors"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/repository"
)

// Persistence checkpoints the registry into a SnapshotStore and rebuilds it
// on boot.
type Persistence struct {
	registry  *repository.Registry
	store     repository.SnapshotStore
	messenger Messenger
	logger    zerolog.Logger

	// Serializes checkpoints so a periodic save never interleaves with the
	// shutdown save.
	mu sync.Mutex
}

func NewPersistence(registry *repository.Registry, store repository.SnapshotStore, messenger Messenger, logger zerolog.Logger) *Persistence {
	return &Persistence{
		registry:  registry,
		store:     store,
		messenger: messenger,
		logger:    logger.With().Str("component", "persistence").Logger(),
	}
}

// Checkpoint rewrites the whole snapshot from the current registry.
func (p *Persistence) Checkpoint(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	giveaways := p.registry.Snapshot()
	records := make([]models.Record, 0, len(giveaways))
	for _, g := range giveaways {
		if g.Status() == models.StatusEnded {
			continue
		}
		records = append(records, g.Record())
	}

	if err := p.store.Save(ctx, repository.EncodeSnapshot(records)); err != nil {
		appErr := apperrors.NewPersistenceError("save snapshot", err)
		p.logger.Error().Err(appErr).Int("giveaways", len(records)).Msg("Failed to write giveaway snapshot")
		return appErr
	}
	p.logger.Debug().Int("giveaways", len(records)).Msg("Snapshot saved")
	return nil
}

// Recover loads the snapshot into the registry. Records that cannot be parsed
// or whose announcement message is gone are skipped with a warning. A missing
// snapshot is a fresh start, not an error.
func (p *Persistence) Recover(ctx context.Context) (int, error) {
	data, err := p.store.Load(ctx)
	if err != nil {
		return 0, apperrors.NewPersistenceError("load snapshot", err)
	}
	if data == nil {
		p.logger.Info().Msg("No giveaway snapshot found, starting fresh")
		return 0, nil
	}

	records, errs := repository.DecodeSnapshot(data)
	for _, err := range errs {
		p.logger.Warn().Err(err).Msg("Skipping unreadable snapshot line")
	}

	loaded := 0
	for _, r := range records {
		log := p.logger.With().Str("channel_id", r.ChannelID).Str("message_id", r.MessageID).Logger()

		exists, err := p.fetch(ctx, r)
		if err != nil {
			log.Warn().Err(apperrors.NewTransportError("fetch", err)).Msg("Skipping giveaway, message lookup failed")
			continue
		}
		if !exists {
			log.Warn().Msg("Skipping giveaway, message no longer exists")
			continue
		}

		g, err := models.New(r.ChannelID, r.MessageID, r.EndTime, r.Prize, r.WinnerCount)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping invalid giveaway record")
			continue
		}
		if err := p.registry.Add(g); err != nil {
			log.Warn().Err(err).Msg("Skipping duplicate giveaway record")
			continue
		}
		loaded++
	}

	p.logger.Info().Int("loaded", loaded).Int("records", len(records)).Int("bad_lines", len(errs)).Msg("Giveaways recovered")
	return loaded, nil
}

func (p *Persistence) fetch(ctx context.Context, r models.Record) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()
	return p.messenger.Fetch(ctx, r.ChannelID, r.MessageID)
}
