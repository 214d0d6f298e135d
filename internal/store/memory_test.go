package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/antitoken/collider/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func vote(id, wallet string, anti, pro, baryon, photon float64) *model.Vote {
	return &model.Vote{
		ID:           id,
		Wallet:       wallet,
		AntiTokens:   d(anti),
		ProTokens:    d(pro),
		BaryonTokens: d(baryon),
		PhotonTokens: d(photon),
		CreatedAt:    time.Now().UTC(),
	}
}

func TestMemoryStore_InsertAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, v := range []*model.Vote{
		vote("v1", "alice", 50, 30, 25, 10),
		vote("v2", "bob", 10, 0, 5, 0.5),
		vote("v3", "alice", 5, 5, 2.5, 0),
	} {
		if err := s.InsertVote(ctx, v); err != nil {
			t.Fatalf("insert %s: %v", v.ID, err)
		}
	}

	all, _ := s.ListVotes(ctx)
	if len(all) != 3 || all[0].ID != "v1" || all[2].ID != "v3" {
		t.Fatalf("unexpected vote order: %+v", all)
	}

	alice, _ := s.GetVotesByWallet(ctx, "alice")
	if len(alice) != 2 {
		t.Errorf("expected 2 votes for alice, got %d", len(alice))
	}
}

func TestMemoryStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.InsertVote(ctx, vote("v1", "alice", 1, 0, 0.5, 0))

	err := s.InsertVote(ctx, vote("v1", "bob", 1, 0, 0.5, 0))
	if !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
}

func TestMemoryStore_Balance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.InsertVote(ctx, vote("v1", "alice", 50, 30, 25, 10))
	s.InsertVote(ctx, vote("v2", "alice", 5, 5, 2.5, 0))
	s.InsertVote(ctx, vote("v3", "bob", 100, 0, 50, 0.5))

	b, err := s.GetBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Anti.Equal(d(55)) || !b.Pro.Equal(d(35)) || !b.Baryon.Equal(d(27.5)) || !b.Photon.Equal(d(10)) {
		t.Errorf("unexpected balance: %+v", b)
	}

	empty, err := s.GetBalance(ctx, "carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !empty.Anti.IsZero() || empty.Wallet != "carol" {
		t.Errorf("expected zero balance for carol, got %+v", empty)
	}
}

func TestMemoryStore_Totals(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.InsertVote(ctx, vote("v1", "alice", 50, 30, 25, 10))
	s.InsertVote(ctx, vote("v2", "alice", 5, 5, 2.5, 0))
	s.InsertVote(ctx, vote("v3", "bob", 100, 0, 50, 0.5))

	tot, _ := s.GetTotals(ctx)
	if tot.Votes != 3 || tot.Voters != 2 {
		t.Errorf("expected 3 votes by 2 voters, got %d by %d", tot.Votes, tot.Voters)
	}
	if !tot.Anti.Equal(d(155)) || !tot.Pro.Equal(d(35)) {
		t.Errorf("unexpected token totals: anti=%s pro=%s", tot.Anti, tot.Pro)
	}
	if !tot.Photon.Equal(d(10.5)) {
		t.Errorf("unexpected photon total %s", tot.Photon)
	}
}

func TestMemoryStore_ListIsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.InsertVote(ctx, vote("v1", "alice", 1, 1, 0.5, 0))

	all, _ := s.ListVotes(ctx)
	all[0].Wallet = "mallory"

	again, _ := s.ListVotes(ctx)
	if again[0].Wallet != "alice" {
		t.Error("ListVotes leaked internal state")
	}
}
