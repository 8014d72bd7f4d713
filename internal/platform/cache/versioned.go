package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BumpChannel carries invalidation events between processes.
const BumpChannel = "ledger.accounts.bump"

// BumpEvent is published on every invalidation.
type BumpEvent struct {
	ID       uuid.UUID `json:"id"`
	TenantID int64     `json:"tenant_id"`
	Version  int64     `json:"version"`
	At       time.Time `json:"at"`
}

// Versioned caches derived account views under a per-tenant version number.
// Invalidation increments the version so every older key becomes unreachable
// and ages out via its TTL.
type Versioned struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewVersioned instantiates the cache helper. A nil client yields a cache that
// always calls through to the loader.
func NewVersioned(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *Versioned {
	if prefix == "" {
		prefix = "ledger:accounts"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Versioned{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *Versioned) versionKey(tenantID int64) string {
	return fmt.Sprintf("%s:%d:version", c.prefix, tenantID)
}

// Version returns the current cache version for the tenant, initialising when missing.
func (c *Versioned) Version(ctx context.Context, tenantID int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := c.versionKey(tenantID)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX so a concurrent Invalidate is never overwritten.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, key, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// Key composes the cache key for a tenant view with the current version.
func (c *Versioned) Key(ctx context.Context, tenantID int64, parts ...string) (string, error) {
	joined := strings.Join(append([]string{c.prefixOrDefault(), formatInt(tenantID)}, parts...), ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

func (c *Versioned) prefixOrDefault() string {
	if c == nil || c.prefix == "" {
		return "ledger:accounts"
	}
	return c.prefix
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, loader, nil)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	return loadInto(ctx, dest, loader, func(raw []byte) error {
		return c.client.Set(ctx, key, raw, c.ttl).Err()
	})
}

func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error), store func([]byte) error) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if store != nil {
		if err := store(raw); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate bumps the tenant version and publishes a BumpEvent.
func (c *Versioned) Invalidate(ctx context.Context, tenantID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, c.versionKey(tenantID)).Result()
	if err != nil {
		return err
	}
	evt := BumpEvent{ID: uuid.New(), TenantID: tenantID, Version: ver, At: time.Now().UTC()}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, BumpChannel, payload).Err()
}

// Subscribe delivers bump events to fn until ctx is cancelled.
func (c *Versioned) Subscribe(ctx context.Context, fn func(BumpEvent)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt BumpEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					c.logger.Warn("cache: malformed bump event", slog.Any("error", err))
					continue
				}
				fn(evt)
			}
		}
	}()
	return nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
