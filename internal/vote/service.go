// Package vote provides the HTTP handlers and business logic for previewing
// distributions, editing a stake allocation, and recording votes.
//
// All token amounts use shopspring/decimal. Curve math runs in float64
// inside the collider package and is converted at this boundary.
package vote

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/antitoken/collider/internal/allocation"
	"github.com/antitoken/collider/internal/ballot"
	"github.com/antitoken/collider/internal/collider"
	"github.com/antitoken/collider/internal/metrics"
	"github.com/antitoken/collider/internal/model"
	"github.com/antitoken/collider/internal/quote"
	"github.com/antitoken/collider/internal/store"
)

// Holdings reports what a wallet holds on chain.
type Holdings interface {
	Holdings(ctx context.Context, wallet string) (ballot.Available, error)
}

// Service handles vote operations. Submissions are serialized with a mutex
// so the balance check and the ledger append see the same state
// (single-instance).
type Service struct {
	store    store.Store
	engine   *collider.Engine
	quotes   quote.Source // optional
	holdings Holdings     // optional; nil skips the on-chain balance check
	wsHub    *WSHub       // optional WebSocket hub for real-time broadcasts
	mu       sync.Mutex
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHoldings enables the on-chain balance check on vote submission.
func WithHoldings(h Holdings) Option {
	return func(s *Service) { s.holdings = h }
}

// NewService creates a new vote service.
// Pass nil for quotes or hub when market data or broadcasting is not needed.
func NewService(st store.Store, eng *collider.Engine, quotes quote.Source, hub *WSHub, opts ...Option) *Service {
	if eng == nil {
		eng = collider.NewEngine(nil)
	}
	s := &Service{
		store:  st,
		engine: eng,
		quotes: quotes,
		wsHub:  hub,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Request/Response types ---

// StakeRequest is the JSON body for POST /distribution.
type StakeRequest struct {
	Anti decimal.Decimal `json:"anti"`
	Pro  decimal.Decimal `json:"pro"`
}

// Preview is a distribution with the emissions it yields.
type Preview struct {
	Distribution *collider.Distribution `json:"distribution"`
	Emissions    collider.EmissionPair  `json:"emissions"`
}

// Allocation edit fields.
const (
	FieldTotal = "total"
	FieldSplit = "split"
	FieldPro   = "pro"
	FieldAnti  = "anti"
	FieldReset = "reset"
)

// AllocationRequest is the JSON body for POST /allocation. The server holds
// no session state: the client sends its current allocation with each edit.
type AllocationRequest struct {
	Allocation  *allocation.Allocation `json:"allocation"` // nil starts a fresh form
	Field       string                 `json:"field"`
	Value       decimal.Decimal        `json:"value"`
	LockedTotal bool                   `json:"locked_total"`
}

// AllocationResponse is the JSON body returned from POST /allocation.
type AllocationResponse struct {
	Allocation allocation.Allocation `json:"allocation"`
	Indicator  decimal.Decimal       `json:"indicator"`
	Quotes     model.Quotes          `json:"quotes"`
	Preview    *Preview              `json:"preview,omitempty"` // nil while both legs are zero
}

// VoteRequest is the JSON body for POST /votes. Rewards are always
// recomputed server side.
type VoteRequest struct {
	Wallet     string          `json:"wallet"`
	AntiTokens decimal.Decimal `json:"anti_tokens"`
	ProTokens  decimal.Decimal `json:"pro_tokens"`
	Signature  string          `json:"signature"`
}

// BallotRequest is the JSON body for POST /ballot.
type BallotRequest struct {
	Wallet     string          `json:"wallet"`
	AntiTokens decimal.Decimal `json:"anti_tokens"`
	ProTokens  decimal.Decimal `json:"pro_tokens"`
}

// BallotResponse carries the rewards a stake would earn and the exact text
// the wallet must sign before submitting it to POST /votes.
type BallotResponse struct {
	Wallet  string        `json:"wallet"`
	Ballot  ballot.Ballot `json:"ballot"`
	Message string        `json:"message"`
	Preview *Preview      `json:"preview"`
}

// TotalsResponse is the JSON body returned from GET /totals.
type TotalsResponse struct {
	Totals  model.Totals `json:"totals"`
	Preview *Preview     `json:"preview,omitempty"`
}

// --- HTTP Handlers ---

// PreviewDistribution handles POST /api/v1/distribution
func (s *Service) PreviewDistribution(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Anti.IsNegative() || req.Pro.IsNegative() {
		writeError(w, ballot.ErrNegativeAmount.Error(), http.StatusBadRequest)
		return
	}

	p, err := s.preview(req.Anti, req.Pro)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// EditAllocation handles POST /api/v1/allocation
// Applies one edit to the client's allocation and returns the new state.
func (s *Service) EditAllocation(w http.ResponseWriter, r *http.Request) {
	var req AllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Value.IsNegative() {
		writeError(w, "value cannot be negative", http.StatusBadRequest)
		return
	}

	var opts []allocation.Option
	if req.LockedTotal {
		opts = append(opts, allocation.WithLockedTotal())
	}
	quotes := s.currentQuotes(r.Context())
	opts = append(opts, allocation.WithQuotes(quotes))

	form := allocation.New(opts...)
	if req.Allocation != nil {
		if err := form.Restore(*req.Allocation); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	switch req.Field {
	case FieldTotal:
		form.SetTotalStake(req.Value)
	case FieldSplit:
		form.SetSplitPercentage(req.Value)
	case FieldPro:
		form.SetProAmount(req.Value)
	case FieldAnti:
		form.SetAntiAmount(req.Value)
	case FieldReset:
		form.Reset()
	default:
		writeError(w, "field must be one of total, split, pro, anti, reset", http.StatusBadRequest)
		return
	}

	state := form.State()
	resp := AllocationResponse{
		Allocation: state,
		Indicator:  form.Indicator(),
		Quotes:     quotes,
	}
	if state.AntiAmount.IsPositive() || state.ProAmount.IsPositive() {
		p, err := s.preview(state.AntiAmount, state.ProAmount)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp.Preview = p
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetQuotes handles GET /api/v1/quotes
func (s *Service) GetQuotes(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		writeJSON(w, http.StatusOK, model.Quotes{})
		return
	}
	q, err := s.quotes.Quotes(r.Context())
	if err != nil {
		metrics.QuoteFetchErrors.Inc()
		slog.Warn("quote fetch failed", "err", err)
		writeError(w, "market data unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// PrepareBallot handles POST /api/v1/ballot
// Computes the rewards for a stake and returns the message to sign. The
// ballot is built exactly as SubmitVote rebuilds it.
func (s *Service) PrepareBallot(w http.ResponseWriter, r *http.Request) {
	var req BallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	wallet, err := ballot.ParseWallet(req.Wallet)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, dist, err := ballot.Build(req.AntiTokens, req.ProTokens, s.engine)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.observe(dist)

	writeJSON(w, http.StatusOK, BallotResponse{
		Wallet:  wallet,
		Ballot:  b,
		Message: ballot.Message(wallet, b),
		Preview: &Preview{
			Distribution: dist,
			Emissions: collider.EmissionPair{
				Baryon: b.BaryonTokens.InexactFloat64(),
				Photon: b.PhotonTokens.InexactFloat64(),
			},
		},
	})
}

// SubmitVote handles POST /api/v1/votes
// Validates the stake, recomputes rewards, and appends the vote to the ledger.
func (s *Service) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	wallet, err := ballot.ParseWallet(req.Wallet)
	if err != nil {
		s.reject(w, "invalid_wallet", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Signature == "" {
		s.reject(w, "missing_signature", "signature is required", http.StatusBadRequest)
		return
	}

	b, dist, err := ballot.Build(req.AntiTokens, req.ProTokens, s.engine)
	if err != nil {
		s.reject(w, "invalid_ballot", err.Error(), http.StatusBadRequest)
		return
	}
	s.observe(dist)

	ctx := r.Context()

	// Serialize submissions.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holdings != nil {
		avail, err := s.available(ctx, wallet)
		if err != nil {
			slog.Error("balance lookup failed", "wallet", wallet, "err", err)
			writeError(w, "failed to check balance", http.StatusBadGateway)
			return
		}
		if err := ballot.CheckBalance(b, avail); err != nil {
			s.reject(w, "insufficient_balance", err.Error(), http.StatusConflict)
			return
		}
	}

	v := &model.Vote{
		ID:           uuid.New().String(),
		Wallet:       wallet,
		AntiTokens:   b.AntiTokens,
		ProTokens:    b.ProTokens,
		BaryonTokens: b.BaryonTokens,
		PhotonTokens: b.PhotonTokens,
		Policy:       dist.Policy,
		Signature:    req.Signature,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.InsertVote(ctx, v); err != nil {
		slog.Error("vote insert failed", "wallet", wallet, "err", err)
		writeError(w, "failed to record vote", http.StatusInternalServerError)
		return
	}

	metrics.VotesTotal.Inc()
	metrics.TokensCommitted.WithLabelValues(model.SymbolAnti).Add(b.AntiTokens.InexactFloat64())
	metrics.TokensCommitted.WithLabelValues(model.SymbolPro).Add(b.ProTokens.InexactFloat64())
	metrics.RewardsEmitted.WithLabelValues(model.SymbolBaryon).Add(b.BaryonTokens.InexactFloat64())
	metrics.RewardsEmitted.WithLabelValues(model.SymbolPhoton).Add(b.PhotonTokens.InexactFloat64())

	slog.Info("vote recorded",
		"id", v.ID,
		"wallet", wallet,
		"anti", b.AntiTokens.String(),
		"pro", b.ProTokens.String(),
		"baryon", b.BaryonTokens.String(),
		"photon", b.PhotonTokens.String(),
		"policy", v.Policy,
	)

	if s.wsHub != nil {
		msg := WSMessage{
			Type:         "vote_recorded",
			VoteID:       v.ID,
			Wallet:       wallet,
			AntiTokens:   b.AntiTokens.String(),
			ProTokens:    b.ProTokens.String(),
			BaryonTokens: b.BaryonTokens.String(),
			PhotonTokens: b.PhotonTokens.String(),
		}
		if t, err := s.store.GetTotals(ctx); err == nil {
			msg.TotalAnti = t.Anti.String()
			msg.TotalPro = t.Pro.String()
			msg.Voters = t.Voters
		}
		s.wsHub.Broadcast(msg)
	}

	writeJSON(w, http.StatusCreated, v)
}

// ListVotes handles GET /api/v1/votes
func (s *Service) ListVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.store.ListVotes(r.Context())
	if err != nil {
		writeError(w, "failed to load votes", http.StatusInternalServerError)
		return
	}
	if votes == nil {
		votes = []model.Vote{}
	}
	writeJSON(w, http.StatusOK, votes)
}

// GetVotes handles GET /api/v1/votes/{wallet}
func (s *Service) GetVotes(w http.ResponseWriter, r *http.Request) {
	wallet, err := ballot.ParseWallet(chi.URLParam(r, "wallet"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	votes, err := s.store.GetVotesByWallet(r.Context(), wallet)
	if err != nil {
		writeError(w, "failed to load votes", http.StatusInternalServerError)
		return
	}
	if votes == nil {
		votes = []model.Vote{}
	}
	writeJSON(w, http.StatusOK, votes)
}

// GetBalance handles GET /api/v1/balances/{wallet}
// Returns the stake a wallet has committed and the rewards it has accrued.
func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	wallet, err := ballot.ParseWallet(chi.URLParam(r, "wallet"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	bal, err := s.store.GetBalance(r.Context(), wallet)
	if err != nil {
		writeError(w, "failed to load balance", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

// GetTotals handles GET /api/v1/totals
// Returns aggregate stakes plus the distribution of the aggregate stake.
func (s *Service) GetTotals(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTotals(r.Context())
	if err != nil {
		writeError(w, "failed to load totals", http.StatusInternalServerError)
		return
	}

	resp := TotalsResponse{Totals: *t}
	if t.Anti.IsPositive() || t.Pro.IsPositive() {
		if p, err := s.preview(t.Anti, t.Pro); err == nil {
			resp.Preview = p
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (s *Service) preview(anti, pro decimal.Decimal) (*Preview, error) {
	af, pf := anti.InexactFloat64(), pro.InexactFloat64()
	dist, err := s.engine.Compute(af, pf)
	if err != nil {
		return nil, err
	}
	s.observe(dist)
	return &Preview{
		Distribution: dist,
		Emissions:    collider.ComputeEmissions(af, pf, dist),
	}, nil
}

func (s *Service) observe(d *collider.Distribution) {
	metrics.DistributionsComputed.WithLabelValues(d.Policy).Inc()
	if d.Degenerate {
		metrics.DegenerateDistributions.Inc()
	}
}

// currentQuotes returns the latest quotes, or none when market data is
// unavailable. Valuation is best effort and never fails an edit.
func (s *Service) currentQuotes(ctx context.Context) model.Quotes {
	if s.quotes == nil {
		return model.Quotes{}
	}
	q, err := s.quotes.Quotes(ctx)
	if err != nil {
		metrics.QuoteFetchErrors.Inc()
		slog.Warn("quote fetch failed, skipping valuation", "err", err)
		return model.Quotes{}
	}
	return q
}

// available is what the wallet holds on chain minus what it has already
// committed to earlier votes.
func (s *Service) available(ctx context.Context, wallet string) (ballot.Available, error) {
	held, err := s.holdings.Holdings(ctx, wallet)
	if err != nil {
		return ballot.Available{}, err
	}
	committed, err := s.store.GetBalance(ctx, wallet)
	if err != nil {
		return ballot.Available{}, err
	}
	return ballot.Available{
		Anti: held.Anti.Sub(committed.Anti),
		Pro:  held.Pro.Sub(committed.Pro),
	}, nil
}

func (s *Service) reject(w http.ResponseWriter, reason, message string, status int) {
	metrics.VoteRejections.WithLabelValues(reason).Inc()
	writeError(w, message, status)
}

// writeJSON encodes before writing the header so an unencodable value
// becomes a 500 rather than a success status with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("response encode failed", "status", status, "err", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
