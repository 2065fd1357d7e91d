package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/open-builders/giveaway-bot/internal/commands"
	"github.com/open-builders/giveaway-bot/internal/common/config"
	"github.com/open-builders/giveaway-bot/internal/common/logger"
	"github.com/open-builders/giveaway-bot/internal/features/dialogue"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/repository"
	filerepo "github.com/open-builders/giveaway-bot/internal/features/giveaway/repository/file"
	redisrepo "github.com/open-builders/giveaway-bot/internal/features/giveaway/repository/redis"
	sqliterepo "github.com/open-builders/giveaway-bot/internal/features/giveaway/repository/sqlite"
	"github.com/open-builders/giveaway-bot/internal/features/giveaway/service"
	apihttp "github.com/open-builders/giveaway-bot/internal/http"
	"github.com/open-builders/giveaway-bot/internal/platform/discord"
	"github.com/open-builders/giveaway-bot/internal/platform/redis"
	"github.com/open-builders/giveaway-bot/internal/utils/random"
	"github.com/open-builders/giveaway-bot/internal/workers"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	lg := logger.Init("giveaway-bot", cfg.Debug)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	bot, err := discord.New(cfg.Discord.Token, lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to create Discord session")
	}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.Open(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			lg.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		lg.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	}

	var snapshots repository.SnapshotStore
	switch cfg.Snapshot.Backend {
	case config.SnapshotBackendRedis:
		snapshots = redisrepo.NewSnapshotStore(rdb, cfg.Snapshot.RedisKey)
	default:
		snapshots = filerepo.NewSnapshotStore(cfg.Snapshot.Path)
	}

	var history repository.HistoryStore = repository.NewMemoryHistory(0)
	if cfg.History.DBPath != "" {
		store, err := sqliterepo.Open(cfg.History.DBPath)
		if err != nil {
			lg.Fatal().Err(err).Str("path", cfg.History.DBPath).Msg("Failed to open history database")
		}
		defer store.Close()
		history = store
	}

	clock := clockwork.NewRealClock()
	registry := repository.NewRegistry()
	lifecycle := service.NewLifecycle(registry, history, bot, service.NewSelector(random.CryptoSource{}), clock, lg,
		service.LifecycleOptions{RerollExcludePrevious: cfg.Reroll.ExcludePrevious})
	persistence := service.NewPersistence(registry, snapshots, bot, lg)
	pool := service.NewWorkerPool(cfg.Scheduler.WorkerPoolSize)
	scheduler := service.NewScheduler(lifecycle, persistence, pool, service.SchedulerConfig{
		TickInterval:       cfg.Scheduler.TickInterval,
		CheckpointInterval: cfg.Scheduler.CheckpointInterval,
	}, lg)

	dialogues := dialogue.NewManager(dialogue.NewWaiter(clock), bot, bot, lifecycle, clock, cfg.Dialogue.Timeout, lg)

	router := commands.NewRouter(cfg.Discord.Prefix, dialogues, bot, lg)
	router.Register(commands.NewCreateCommand(dialogues))
	router.Register(commands.NewStartCommand(dialogues))
	router.Register(commands.NewEndCommand(lifecycle))
	router.Register(commands.NewRerollCommand(lifecycle))
	bot.OnMessage(func(ev dialogue.Event) {
		if err := router.Handle(ctx, ev); err != nil {
			lg.Warn().Err(err).Str("channel_id", ev.ChannelID).Msg("Command failed")
		}
	})

	if err := bot.Open(); err != nil {
		lg.Fatal().Err(err).Msg("Failed to connect to Discord")
	}

	// Recovery fetches every announcement, so it needs the open session.
	if _, err := persistence.Recover(ctx); err != nil {
		lg.Warn().Err(err).Msg("Giveaway recovery failed, starting empty")
	}
	scheduler.Start(ctx)

	workerDone := make(chan struct{})
	if rdb != nil {
		go func() {
			defer close(workerDone)
			workers.NewCommandStreamWorker(rdb, cfg.Redis.CommandStream, lifecycle, lg).Start(ctx)
		}()
	} else {
		close(workerDone)
	}

	var server *apihttp.Server
	if cfg.HTTP.Addr != "" {
		httpCfg := apihttp.Config{Addr: cfg.HTTP.Addr, CORSOrigin: cfg.HTTP.Origin, Debug: cfg.Debug}
		server = apihttp.NewServer(httpCfg, apihttp.NewRouter(httpCfg, lifecycle, registry, lg), lg)
		server.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	lg.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error().Err(err).Msg("HTTP server forced to shutdown")
		}
	}
	stop()
	scheduler.Stop()
	<-workerDone
	dialogues.Wait()

	if err := persistence.Checkpoint(shutdownCtx); err != nil {
		lg.WithLevel(zerolog.FatalLevel).Err(err).Msg("Failed to save giveaways on shutdown")
	}
	if err := bot.Close(); err != nil {
		lg.Warn().Err(err).Msg("Failed to close Discord session")
	}
	lg.Info().Msg("Bot exited")
}
