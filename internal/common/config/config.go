package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	SnapshotBackendFile  = "file"
	SnapshotBackendRedis = "redis"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Discord struct {
		Token  string `env:"DISCORD_TOKEN,required,notEmpty"`
		Prefix string `env:"COMMAND_PREFIX" envDefault:"!g"`
	}

	Scheduler struct {
		TickInterval       time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
		CheckpointInterval time.Duration `env:"CHECKPOINT_INTERVAL" envDefault:"5m"`
		WorkerPoolSize     int           `env:"WORKER_POOL_SIZE" envDefault:"20"`
	}

	Dialogue struct {
		Timeout time.Duration `env:"DIALOGUE_TIMEOUT" envDefault:"2m"`
	}

	Snapshot struct {
		Backend  string `env:"SNAPSHOT_BACKEND" envDefault:"file"` // file, redis
		Path     string `env:"SNAPSHOT_PATH" envDefault:"giveaways_restart.txt"`
		RedisKey string `env:"SNAPSHOT_REDIS_KEY" envDefault:"giveaways:snapshot"`
	}

	Redis struct {
		Addr          string `env:"REDIS_ADDR"`
		Password      string `env:"REDIS_PASSWORD" envDefault:""`
		DB            int    `env:"REDIS_DB" envDefault:"0"`
		CommandStream string `env:"COMMAND_STREAM" envDefault:"bot:commands"`
	}

	History struct {
		// Empty keeps ended giveaways in memory only.
		DBPath string `env:"HISTORY_DB_PATH" envDefault:"data/history.db"`
	}

	Reroll struct {
		ExcludePrevious bool `env:"REROLL_EXCLUDE_PREVIOUS" envDefault:"false"`
	}

	HTTP struct {
		Addr   string `env:"HTTP_ADDR" envDefault:":8080"`
		Origin string `env:"CORS_ORIGIN" envDefault:"*"`
	}
}

// Load reads .env (if present) and the environment into Config.
func Load() (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("invalid TICK_INTERVAL: %s", c.Scheduler.TickInterval)
	}
	if c.Scheduler.CheckpointInterval <= 0 {
		return fmt.Errorf("invalid CHECKPOINT_INTERVAL: %s", c.Scheduler.CheckpointInterval)
	}
	if c.Scheduler.WorkerPoolSize < 1 {
		return fmt.Errorf("invalid WORKER_POOL_SIZE: %d", c.Scheduler.WorkerPoolSize)
	}
	if c.Dialogue.Timeout <= 0 {
		return fmt.Errorf("invalid DIALOGUE_TIMEOUT: %s", c.Dialogue.Timeout)
	}
	switch c.Snapshot.Backend {
	case SnapshotBackendFile:
	case SnapshotBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("SNAPSHOT_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("invalid SNAPSHOT_BACKEND: %q", c.Snapshot.Backend)
	}
	return nil
}
