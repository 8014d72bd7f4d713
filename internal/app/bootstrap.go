package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/labels"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Backends holds the shared connections every binary needs.
type Backends struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	Cache *cache.Versioned

	logger *slog.Logger
}

// OpenBackends connects to Postgres and Redis. A Redis outage is tolerated:
// the account cache then degrades to pass-through.
func OpenBackends(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backends, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	b := &Backends{Pool: pool, logger: logger}

	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, account cache disabled", slog.Any("error", err))
	} else {
		b.Redis = client
	}
	b.Cache = cache.NewVersioned(b.Redis, cfg.LedgerCachePrefix, cfg.LedgerCacheTTL, logger)
	return b, nil
}

// AccountStore builds the ledger account store on top of the backends.
func (b *Backends) AccountStore(cfg *Config, metrics *observability.Ledger) (*accounts.Store, error) {
	namer, err := labels.New(cfg.LedgerLocale)
	if err != nil {
		return nil, err
	}
	return accounts.NewStore(accounts.StoreConfig{
		Repo:    accounts.NewRepository(b.Pool),
		Cache:   b.Cache,
		Namer:   namer,
		Metrics: metrics,
		Logger:  b.logger,
	}), nil
}

// Readiness returns the ping checks for /readyz.
func (b *Backends) Readiness() map[string]Pinger {
	checks := map[string]Pinger{"postgres": b.Pool}
	if b.Redis != nil {
		checks["redis"] = PingFunc(func(ctx context.Context) error {
			return b.Redis.Ping(ctx).Err()
		})
	}
	return checks
}

// Close releases pools and clients.
func (b *Backends) Close() {
	if b == nil {
		return
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			b.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
}
