package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// WorkerConfig tunes the worker pools and the timeout guard.
type WorkerConfig struct {
	MaxWorkers   int           `env:"MAX_WORKERS,default=10"`
	LockDuration time.Duration `env:"JOB_LOCK_DURATION,default=1m"`
	IdleDelayMin time.Duration `env:"WORKER_IDLE_DELAY_MIN,default=1s"`
	IdleDelayMax time.Duration `env:"WORKER_IDLE_DELAY_MAX,default=60s"`
}

// HealthConfig holds the queue-health thresholds.
type HealthConfig struct {
	WaitThreshold   int           `env:"HEALTH_WAIT_THRESHOLD,default=100"`
	OldestThreshold time.Duration `env:"HEALTH_OLDEST_THRESHOLD,default=120s"`
	SweepInterval   time.Duration `env:"HEALTH_SWEEP_INTERVAL,default=30s"`
}

// CacheConfig points at the redis result cache.
type CacheConfig struct {
	Addr     string        `env:"REDIS_ADDR,default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	ResultTTL time.Duration `env:"RESULT_CACHE_TTL,default=1h"`
}

func LoadWorkerConfig(ctx context.Context) (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if cfg.MaxWorkers < 1 {
		return nil, fmt.Errorf("MAX_WORKERS must be positive")
	}
	if cfg.LockDuration <= 0 {
		return nil, fmt.Errorf("JOB_LOCK_DURATION must be positive")
	}
	return &cfg, nil
}

func LoadHealthConfig(ctx context.Context) (*HealthConfig, error) {
	var cfg HealthConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if cfg.WaitThreshold < 0 {
		return nil, fmt.Errorf("HEALTH_WAIT_THRESHOLD must be non-negative")
	}
	if cfg.OldestThreshold <= 0 {
		return nil, fmt.Errorf("HEALTH_OLDEST_THRESHOLD must be positive")
	}
	return &cfg, nil
}

func LoadCacheConfig(ctx context.Context) (*CacheConfig, error) {
	var cfg CacheConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	return &cfg, nil
}
