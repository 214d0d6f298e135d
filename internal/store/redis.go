package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/antitoken/collider/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) InsertVote(ctx context.Context, v *model.Vote) error {
	if err := s.primary.InsertVote(ctx, v); err != nil {
		return err
	}
	s.rdb.Del(ctx, balanceKey(v.Wallet), totalsKey)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetBalance(ctx context.Context, wallet string) (*model.Balance, error) {
	var b model.Balance
	if s.get(ctx, balanceKey(wallet), &b) {
		return &b, nil
	}

	// Cache miss.
	bal, err := s.primary.GetBalance(ctx, wallet)
	if err != nil {
		return nil, err
	}
	s.set(ctx, balanceKey(wallet), bal)
	return bal, nil
}

func (s *CachedStore) GetTotals(ctx context.Context) (*model.Totals, error) {
	var t model.Totals
	if s.get(ctx, totalsKey, &t) {
		return &t, nil
	}

	// Cache miss.
	totals, err := s.primary.GetTotals(ctx)
	if err != nil {
		return nil, err
	}
	s.set(ctx, totalsKey, totals)
	return totals, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListVotes(ctx context.Context) ([]model.Vote, error) {
	return s.primary.ListVotes(ctx)
}

func (s *CachedStore) GetVotesByWallet(ctx context.Context, wallet string) ([]model.Vote, error) {
	return s.primary.GetVotesByWallet(ctx, wallet)
}

// --- Cache helpers ---

func (s *CachedStore) get(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) set(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

const totalsKey = "totals"

func balanceKey(wallet string) string { return fmt.Sprintf("balance:%s", wallet) }
