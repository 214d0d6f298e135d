// Package store defines the vote ledger interface for the collider service.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/antitoken/collider/internal/model"
)

// ErrDuplicateVote is returned when a vote ID is already recorded.
var ErrDuplicateVote = errors.New("store: duplicate vote")

// Store is the persistence interface. Votes are append-only; balances and
// totals are always derived from them.
type Store interface {
	// InsertVote appends an immutable vote record.
	InsertVote(ctx context.Context, v *model.Vote) error

	// ListVotes returns all votes, oldest first.
	ListVotes(ctx context.Context) ([]model.Vote, error)

	// GetVotesByWallet returns all votes cast by a wallet, oldest first.
	GetVotesByWallet(ctx context.Context, wallet string) ([]model.Vote, error)

	// GetBalance sums a wallet's committed stake and rewards. A wallet
	// without votes has a zero balance, not an error.
	GetBalance(ctx context.Context, wallet string) (*model.Balance, error)

	// GetTotals aggregates every recorded vote.
	GetTotals(ctx context.Context) (*model.Totals, error)
}
