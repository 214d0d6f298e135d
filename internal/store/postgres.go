package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/antitoken/collider/internal/model"
)

// Schema creates the vote ledger. Token amounts are NUMERIC for exact
// decimal precision.
const Schema = `
CREATE TABLE IF NOT EXISTS votes (
	id            TEXT PRIMARY KEY,
	wallet        TEXT NOT NULL,
	anti_tokens   NUMERIC NOT NULL,
	pro_tokens    NUMERIC NOT NULL,
	baryon_tokens NUMERIC NOT NULL,
	photon_tokens NUMERIC NOT NULL,
	policy        TEXT NOT NULL,
	signature     TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS votes_wallet_idx ON votes (wallet, created_at);
`

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL as the source of truth.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies Schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate votes: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertVote(ctx context.Context, v *model.Vote) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO votes (id, wallet, anti_tokens, pro_tokens, baryon_tokens, photon_tokens, policy, signature, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7, $8, $9)`,
		v.ID, v.Wallet,
		v.AntiTokens.String(), v.ProTokens.String(),
		v.BaryonTokens.String(), v.PhotonTokens.String(),
		v.Policy, v.Signature, v.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateVote, v.ID)
	}
	return err
}

const voteColumns = `id, wallet,
		anti_tokens::TEXT, pro_tokens::TEXT, baryon_tokens::TEXT, photon_tokens::TEXT,
		policy, signature, created_at`

func (s *PostgresStore) ListVotes(ctx context.Context) ([]model.Vote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+voteColumns+` FROM votes ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVotes(rows)
}

func (s *PostgresStore) GetVotesByWallet(ctx context.Context, wallet string) ([]model.Vote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+voteColumns+` FROM votes WHERE wallet = $1 ORDER BY created_at`, wallet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVotes(rows)
}

func (s *PostgresStore) GetBalance(ctx context.Context, wallet string) (*model.Balance, error) {
	var anti, pro, baryon, photon string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(anti_tokens), 0)::TEXT,
		        COALESCE(SUM(pro_tokens), 0)::TEXT,
		        COALESCE(SUM(baryon_tokens), 0)::TEXT,
		        COALESCE(SUM(photon_tokens), 0)::TEXT
		 FROM votes WHERE wallet = $1`, wallet).
		Scan(&anti, &pro, &baryon, &photon)
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", wallet, err)
	}

	b := &model.Balance{Wallet: wallet}
	b.Anti, _ = decimal.NewFromString(anti)
	b.Pro, _ = decimal.NewFromString(pro)
	b.Baryon, _ = decimal.NewFromString(baryon)
	b.Photon, _ = decimal.NewFromString(photon)
	return b, nil
}

func (s *PostgresStore) GetTotals(ctx context.Context) (*model.Totals, error) {
	var t model.Totals
	var anti, pro, baryon, photon string
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT wallet),
		        COALESCE(SUM(anti_tokens), 0)::TEXT,
		        COALESCE(SUM(pro_tokens), 0)::TEXT,
		        COALESCE(SUM(baryon_tokens), 0)::TEXT,
		        COALESCE(SUM(photon_tokens), 0)::TEXT
		 FROM votes`).
		Scan(&t.Votes, &t.Voters, &anti, &pro, &baryon, &photon)
	if err != nil {
		return nil, fmt.Errorf("get totals: %w", err)
	}

	t.Anti, _ = decimal.NewFromString(anti)
	t.Pro, _ = decimal.NewFromString(pro)
	t.Baryon, _ = decimal.NewFromString(baryon)
	t.Photon, _ = decimal.NewFromString(photon)
	return &t, nil
}

// pgxRows is the subset of pgx.Rows read by scanVotes.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanVotes(rows pgxRows) ([]model.Vote, error) {
	var votes []model.Vote
	for rows.Next() {
		var v model.Vote
		var antiS, proS, baryonS, photonS string

		if err := rows.Scan(&v.ID, &v.Wallet,
			&antiS, &proS, &baryonS, &photonS,
			&v.Policy, &v.Signature, &v.CreatedAt); err != nil {
			return nil, err
		}

		v.AntiTokens, _ = decimal.NewFromString(antiS)
		v.ProTokens, _ = decimal.NewFromString(proS)
		v.BaryonTokens, _ = decimal.NewFromString(baryonS)
		v.PhotonTokens, _ = decimal.NewFromString(photonS)

		votes = append(votes, v)
	}
	return votes, rows.Err()
}
