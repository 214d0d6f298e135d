package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/antitoken/collider/internal/model"
)

// MemoryStore implements Store with an in-memory slice. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu    sync.RWMutex
	votes []model.Vote
	ids   map[string]struct{}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

func (s *MemoryStore) InsertVote(_ context.Context, v *model.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[v.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateVote, v.ID)
	}
	s.ids[v.ID] = struct{}{}
	s.votes = append(s.votes, *v)
	return nil
}

func (s *MemoryStore) ListVotes(_ context.Context) ([]model.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Vote, len(s.votes))
	copy(out, s.votes)
	return out, nil
}

func (s *MemoryStore) GetVotesByWallet(_ context.Context, wallet string) ([]model.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Vote
	for _, v := range s.votes {
		if v.Wallet == wallet {
			result = append(result, v)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetBalance(_ context.Context, wallet string) (*model.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := &model.Balance{Wallet: wallet}
	for _, v := range s.votes {
		if v.Wallet != wallet {
			continue
		}
		b.Anti = b.Anti.Add(v.AntiTokens)
		b.Pro = b.Pro.Add(v.ProTokens)
		b.Baryon = b.Baryon.Add(v.BaryonTokens)
		b.Photon = b.Photon.Add(v.PhotonTokens)
	}
	return b, nil
}

func (s *MemoryStore) GetTotals(_ context.Context) (*model.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := &model.Totals{Votes: len(s.votes)}
	voters := make(map[string]struct{})
	for _, v := range s.votes {
		voters[v.Wallet] = struct{}{}
		t.Anti = t.Anti.Add(v.AntiTokens)
		t.Pro = t.Pro.Add(v.ProTokens)
		t.Baryon = t.Baryon.Add(v.BaryonTokens)
		t.Photon = t.Photon.Add(v.PhotonTokens)
	}
	t.Voters = len(voters)
	return t, nil
}
