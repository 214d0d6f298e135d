// Package ballot builds and validates the vote payload a participant signs
// and submits: the two stake legs plus the rewards they earn.
package ballot

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/antitoken/collider/internal/collider"
	"github.com/antitoken/collider/internal/model"
)

// Scale is the number of decimal places kept for derived reward amounts.
var Scale int32 = 8

// walletRegex matches a base58-encoded Solana public key.
var walletRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

var (
	ErrInvalidWallet       = errors.New("ballot: invalid wallet address")
	ErrEmptyBallot         = errors.New("ballot: must vote with at least some tokens")
	ErrNegativeAmount      = errors.New("ballot: token amounts cannot be negative")
	ErrInsufficientBalance = errors.New("ballot: cannot vote with more tokens than available")
)

// Ballot is the vote submission payload.
type Ballot struct {
	AntiTokens   decimal.Decimal `json:"anti_tokens"`
	ProTokens    decimal.Decimal `json:"pro_tokens"`
	BaryonTokens decimal.Decimal `json:"baryon_tokens"`
	PhotonTokens decimal.Decimal `json:"photon_tokens"`
}

// Available is what a wallet may still stake on each side.
type Available struct {
	Anti decimal.Decimal
	Pro  decimal.Decimal
}

// ParseWallet trims and validates a wallet address.
func ParseWallet(s string) (string, error) {
	w := strings.TrimSpace(s)
	if !walletRegex.MatchString(w) {
		return "", fmt.Errorf("%w: %q", ErrInvalidWallet, s)
	}
	return w, nil
}

// Validate checks that a ballot stakes something and nothing negative.
func Validate(b Ballot) error {
	if b.AntiTokens.IsNegative() || b.ProTokens.IsNegative() {
		return ErrNegativeAmount
	}
	if !b.AntiTokens.IsPositive() && !b.ProTokens.IsPositive() {
		return ErrEmptyBallot
	}
	return nil
}

// CheckBalance rejects ballots that stake more than the wallet holds.
func CheckBalance(b Ballot, avail Available) error {
	if b.AntiTokens.GreaterThan(avail.Anti) {
		return fmt.Errorf("%w: %s %s > %s", ErrInsufficientBalance, model.SymbolAnti, b.AntiTokens, avail.Anti)
	}
	if b.ProTokens.GreaterThan(avail.Pro) {
		return fmt.Errorf("%w: %s %s > %s", ErrInsufficientBalance, model.SymbolPro, b.ProTokens, avail.Pro)
	}
	return nil
}

// Build validates the stake legs and derives the rewards they earn under
// the engine's policy. The distribution is returned for callers that
// render or broadcast it.
func Build(anti, pro decimal.Decimal, eng *collider.Engine) (Ballot, *collider.Distribution, error) {
	b := Ballot{AntiTokens: anti, ProTokens: pro}
	if err := Validate(b); err != nil {
		return Ballot{}, nil, err
	}

	af, pf := anti.InexactFloat64(), pro.InexactFloat64()
	dist, err := eng.Compute(af, pf)
	if err != nil {
		return Ballot{}, nil, fmt.Errorf("ballot: compute distribution: %w", err)
	}
	em := collider.ComputeEmissions(af, pf, dist)
	if !em.Finite() {
		return Ballot{}, nil, fmt.Errorf("ballot: emissions %+v: %w", em, collider.ErrNonFinite)
	}

	b.BaryonTokens = decimal.NewFromFloat(em.Baryon).Round(Scale)
	b.PhotonTokens = decimal.NewFromFloat(em.Photon).Round(Scale)
	return b, dist, nil
}

// Message is the text a wallet is asked to sign before a ballot is
// submitted.
func Message(wallet string, b Ballot) string {
	var sb strings.Builder
	sb.WriteString("Requesting signature to vote with:\n")
	fmt.Fprintf(&sb, "%s $%s,\n", b.AntiTokens, model.SymbolAnti)
	fmt.Fprintf(&sb, "%s $%s,\n", b.ProTokens, model.SymbolPro)
	sb.WriteString("for\n")
	fmt.Fprintf(&sb, "%s $%s,\n", b.BaryonTokens, model.SymbolBaryon)
	fmt.Fprintf(&sb, "%s $%s\n", b.PhotonTokens, model.SymbolPhoton)
	fmt.Fprintf(&sb, "with account %s", wallet)
	return sb.String()
}
