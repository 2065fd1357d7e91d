package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-bot/internal/features/giveaway/models"
)

// ShouldRender applies the status refresh cadence for tick t.
func ShouldRender(t uint64, now, end time.Time) bool {
	switch {
	case now.Add(FinalCountdownWindow).After(end):
		return true
	case now.Add(WarmupWindow).After(end):
		return t%WarmupEveryTicks == 0
	default:
		return t%HeartbeatEveryTicks == 0
	}
}

// ShouldEnd reports whether g is due for ending at now.
func ShouldEnd(g *models.Giveaway, now time.Time) bool {
	return g.Unreachable() || now.Add(EndLeeway).After(g.EndTime)
}

// SchedulerConfig configures the background loops.
type SchedulerConfig struct {
	TickInterval       time.Duration
	CheckpointInterval time.Duration
}

// Scheduler drives the per-tick evaluation of active giveaways and the
// periodic checkpoint.
type Scheduler struct {
	lifecycle   *Lifecycle
	persistence *Persistence
	pool        *WorkerPool
	clock       clockwork.Clock
	logger      zerolog.Logger
	cfg         SchedulerConfig

	mu   sync.Mutex
	tick uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(lifecycle *Lifecycle, persistence *Persistence, pool *WorkerPool, cfg SchedulerConfig, logger zerolog.Logger) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	return &Scheduler{
		lifecycle:   lifecycle,
		persistence: persistence,
		pool:        pool,
		clock:       lifecycle.Clock(),
		logger:      logger.With().Str("component", "scheduler").Logger(),
		cfg:         cfg,
	}
}

// Start launches the tick loop and the checkpoint loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Info().
		Dur("tick_interval", s.cfg.TickInterval).
		Dur("checkpoint_interval", s.cfg.CheckpointInterval).
		Msg("Starting scheduler")

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		ticker := s.clock.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ticker.Chan():
				s.Tick(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer s.wg.Done()
		ticker := s.clock.NewTicker(s.cfg.CheckpointInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				err := s.pool.Run(ctx, func(ctx context.Context) {
					_ = s.persistence.Checkpoint(ctx)
				})
				if err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels both loops and waits for in-flight work.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.logger.Info().Msg("Stopping scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

// Tick runs one evaluation pass: renders due status lines, then ends every
// giveaway found expired during the scan. Ticks never overlap.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tick
	s.tick++
	now := s.clock.Now()

	var renders, ends []func(ctx context.Context)
	for _, g := range s.lifecycle.Registry().Snapshot() {
		if g.Status() != models.StatusActive {
			continue
		}
		if ShouldEnd(g, now) {
			ends = append(ends, func(ctx context.Context) {
				_ = s.lifecycle.End(ctx, g)
			})
			continue
		}
		if ShouldRender(t, now, g.EndTime) {
			renders = append(renders, func(ctx context.Context) {
				s.lifecycle.Render(ctx, g)
			})
		}
	}

	if len(renders) > 0 || len(ends) > 0 {
		s.logger.Debug().Uint64("tick", t).Int("renders", len(renders)).Int("ends", len(ends)).Msg("Tick")
	}
	s.pool.RunAll(ctx, renders)
	s.pool.RunAll(ctx, ends)
}
