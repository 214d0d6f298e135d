package quote

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/antitoken/collider/internal/model"
)

// Cached wraps a Source with a Redis read-through cache. Both quotes are
// stored together under one key so a reader never mixes quotes from two
// different fetches.
type Cached struct {
	source Source
	rdb    *redis.Client
	ttl    time.Duration
}

// NewCached creates a cached wrapper around a source.
func NewCached(source Source, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{source: source, rdb: rdb, ttl: ttl}
}

const quotesKey = "quotes:anti-pro"

func (c *Cached) Quotes(ctx context.Context) (model.Quotes, error) {
	data, err := c.rdb.Get(ctx, quotesKey).Bytes()
	if err == nil {
		var q model.Quotes
		if json.Unmarshal(data, &q) == nil {
			return q, nil
		}
	}

	// Cache miss.
	q, err := c.source.Quotes(ctx)
	if err != nil {
		return model.Quotes{}, err
	}

	if data, err := json.Marshal(q); err == nil {
		if err := c.rdb.Set(ctx, quotesKey, data, c.ttl).Err(); err != nil {
			slog.Warn("quote cache write failed", "err", err)
		}
	}
	return q, nil
}
