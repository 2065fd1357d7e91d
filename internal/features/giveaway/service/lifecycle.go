package service

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	apperrors "github.com/open-builders/giveaway-bot/internal/common/errors"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/repository"
)

// LifecycleOptions tunes optional lifecycle behaviour.
type LifecycleOptions struct {
	// RerollExcludePrevious drops the previous winners from a reroll draw.
	RerollExcludePrevious bool
}

// Lifecycle starts, renders, ends and rerolls giveaways.
type Lifecycle struct {
	registry  *repository.Registry
	history   repository.HistoryStore
	messenger Messenger
	selector  *Selector
	clock     clockwork.Clock
	logger    zerolog.Logger
	opts      LifecycleOptions
}

func NewLifecycle(
	registry *repository.Registry,
	history repository.HistoryStore,
	messenger Messenger,
	selector *Selector,
	clock clockwork.Clock,
	logger zerolog.Logger,
	opts LifecycleOptions,
) *Lifecycle {
	return &Lifecycle{
		registry:  registry,
		history:   history,
		messenger: messenger,
		selector:  selector,
		clock:     clock,
		logger:    logger.With().Str("component", "lifecycle").Logger(),
		opts:      opts,
	}
}

func (l *Lifecycle) Registry() *repository.Registry {
	return l.registry
}

func (l *Lifecycle) Clock() clockwork.Clock {
	return l.clock
}

// Start registers g and renders its first status line.
func (l *Lifecycle) Start(ctx context.Context, g *models.Giveaway) error {
	if err := l.registry.Add(g); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeConflict, "start giveaway %s", g.Key())
	}
	l.logger.Info().
		Str("channel_id", g.ChannelID).
		Str("message_id", g.MessageID).
		Time("end_time", g.EndTime).
		Int("winners", g.WinnerCount).
		Msg("Giveaway started")
	l.Render(ctx, g)
	return nil
}

// Render refreshes the status line. Failures are logged and left for the
// next qualifying tick; a deleted message marks the giveaway for ending.
func (l *Lifecycle) Render(ctx context.Context, g *models.Giveaway) {
	if g.Status() != models.StatusActive {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()

	err := l.messenger.Edit(ctx, g.ChannelID, g.MessageID, StatusMessage(g, l.clock.Now()))
	if err == nil {
		return
	}
	if errors.Is(err, ErrMessageNotFound) {
		g.MarkUnreachable()
		l.logger.Warn().Str("message_id", g.MessageID).Msg("Giveaway message is gone, ending it")
		return
	}
	l.logger.Warn().Err(err).Str("message_id", g.MessageID).Msg("Failed to render giveaway status")
}

// End draws winners, announces them and removes g from the registry. Only the
// first call for a giveaway does anything; later calls are no-ops. When the
// entrants cannot be fetched g goes back to Active and stays registered, so
// the next qualifying tick retries. Caller cancellation does not interrupt an
// end that has begun.
func (l *Lifecycle) End(ctx context.Context, g *models.Giveaway) error {
	if !g.BeginEnding() {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	log := l.logger.With().Str("channel_id", g.ChannelID).Str("message_id", g.MessageID).Logger()

	var (
		winners    []string
		announceOK = !g.Unreachable()
	)
	if announceOK {
		entrants, err := l.listEntrants(ctx, g.ChannelID, g.MessageID)
		switch {
		case errors.Is(err, ErrMessageNotFound):
			announceOK = false
		case err != nil:
			g.AbortEnding()
			log.Warn().Err(err).Msg("Failed to list entrants, giveaway stays active")
			return apperrors.NewTransportError("list entrants", err)
		default:
			winners = l.selector.Select(entrants, g.WinnerCount, l.messenger.SelfID())
		}
	}

	if announceOK {
		l.announce(ctx, g, winners, log)
	}

	g.MarkEnded()
	l.registry.Remove(g)

	ended := models.EndedGiveaway{
		ChannelID:   g.ChannelID,
		MessageID:   g.MessageID,
		EndTime:     g.EndTime,
		WinnerCount: g.WinnerCount,
		Prize:       g.Prize,
		Winners:     winners,
		EndedAt:     l.clock.Now(),
	}
	historyCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()
	if err := l.history.Record(historyCtx, ended); err != nil {
		log.Warn().Err(err).Msg("Failed to record ended giveaway")
	}

	log.Info().Int("winners", len(winners)).Bool("announced", announceOK).Msg("Giveaway ended")
	return nil
}

func (l *Lifecycle) listEntrants(ctx context.Context, channelID, messageID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()
	return l.messenger.ListEntrants(ctx, channelID, messageID)
}

// announce is best effort: once the winners are drawn the giveaway leaves the
// registry whether or not the results reach the channel.
func (l *Lifecycle) announce(ctx context.Context, g *models.Giveaway, winners []string, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()

	if err := l.messenger.Edit(ctx, g.ChannelID, g.MessageID, ResultMessage(g, winners)); err != nil {
		log.Warn().Err(apperrors.NewTransportError("edit", err)).Msg("Failed to render giveaway result")
	}
	if _, err := l.messenger.Send(ctx, g.ChannelID, WinnersAnnouncement(g.Prize, winners)); err != nil {
		log.Warn().Err(apperrors.NewTransportError("send", err)).Msg("Failed to announce giveaway winners")
	}
}

// ForceEnd ends the active giveaway announced by messageID right away.
func (l *Lifecycle) ForceEnd(ctx context.Context, messageID string) error {
	g, ok := l.registry.FindByMessage(messageID)
	if !ok {
		return apperrors.NewNotFoundError("active giveaway", messageID, repository.ErrGiveawayNotFound)
	}
	return l.End(ctx, g)
}

// Reroll draws new winners for an ended giveaway from its current entrants
// and announces them. The giveaway stays ended.
func (l *Lifecycle) Reroll(ctx context.Context, messageID string) ([]string, error) {
	ended, err := l.history.Get(ctx, messageID)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		return nil, apperrors.NewNotFoundError("ended giveaway", messageID, err)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("history get", err)
	}

	entrants, err := l.listEntrants(ctx, ended.ChannelID, ended.MessageID)
	if errors.Is(err, ErrMessageNotFound) {
		return nil, apperrors.NewNotFoundError("giveaway message", messageID, err)
	}
	if err != nil {
		return nil, apperrors.NewTransportError("list entrants", err)
	}

	exclude := []string{l.messenger.SelfID()}
	if l.opts.RerollExcludePrevious {
		exclude = append(exclude, ended.Winners...)
	}
	winners := l.selector.Select(entrants, ended.WinnerCount, exclude...)

	sendCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()
	if _, err := l.messenger.Send(sendCtx, ended.ChannelID, WinnersAnnouncement(ended.Prize, winners)); err != nil {
		return nil, apperrors.NewTransportError("send", err)
	}

	if len(winners) > 0 {
		if err := l.history.UpdateWinners(ctx, messageID, winners); err != nil {
			l.logger.Warn().Err(err).Str("message_id", messageID).Msg("Failed to store rerolled winners")
		}
	}
	l.logger.Info().Str("message_id", messageID).Int("winners", len(winners)).Msg("Giveaway rerolled")
	return winners, nil
}
