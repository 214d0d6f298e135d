// Package allocation keeps the stake form consistent while a participant
// edits it. The record has four mutually dependent fields (total stake,
// split percentage, PRO amount, ANTI amount) and each edit recomputes the
// others so that
//
//	ProAmount + AntiAmount == TotalStake
//	SplitPercentage == ProAmount / TotalStake * 100   (when TotalStake > 0)
//
// always hold after an edit returns.
package allocation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/antitoken/collider/internal/model"
)

// ErrInvalidAllocation is returned by Restore for a record with a
// negative field.
var ErrInvalidAllocation = errors.New("allocation: invalid record")

var (
	hundred = decimal.NewFromInt(100)

	// DefaultSplit is the split percentage of a fresh record and of any
	// record whose total is zero.
	DefaultSplit = decimal.NewFromInt(50)
)

// Allocation is the form state owned by one voting session.
type Allocation struct {
	TotalStake      decimal.Decimal `json:"total_stake"`
	SplitPercentage decimal.Decimal `json:"split_percentage"`
	ProAmount       decimal.Decimal `json:"pro_amount"`
	AntiAmount      decimal.Decimal `json:"anti_amount"`
	UsdValue        decimal.Decimal `json:"usd_value"`
}

// Initial returns the state of a freshly opened form.
func Initial() Allocation {
	return Allocation{SplitPercentage: DefaultSplit}
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLockedTotal makes amount edits keep the total fixed: editing one
// leg rebalances the other. If the edited leg exceeds the total, the
// total grows to match it.
func WithLockedTotal() Option {
	return func(s *Synchronizer) { s.lockedTotal = true }
}

// WithQuotes seeds the USD quotes used for valuation.
func WithQuotes(q model.Quotes) Option {
	return func(s *Synchronizer) { s.quotes = q }
}

// Synchronizer applies edits to one Allocation. It belongs to a single
// session and is not safe for concurrent use.
type Synchronizer struct {
	state       Allocation
	quotes      model.Quotes
	lockedTotal bool
}

// New creates a synchronizer holding the initial state.
func New(opts ...Option) *Synchronizer {
	s := &Synchronizer{state: Initial()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current record.
func (s *Synchronizer) State() Allocation {
	return s.state
}

// Restore replaces the current record, e.g. with one a client sent back.
// The record is normalized so the invariants hold before the next edit:
// the legs are authoritative when either is non-zero (TotalStake becomes
// their sum and SplitPercentage is recomputed if it disagrees), a record
// with only a total is split by its percentage, and the percentage is
// clamped to [0, 100]. Negative fields are rejected and the current
// record is kept.
func (s *Synchronizer) Restore(a Allocation) error {
	switch {
	case a.TotalStake.IsNegative(), a.ProAmount.IsNegative(), a.AntiAmount.IsNegative():
		return fmt.Errorf("%w: negative amount", ErrInvalidAllocation)
	case a.UsdValue.IsNegative():
		return fmt.Errorf("%w: negative usd value", ErrInvalidAllocation)
	}

	pct := clampPercent(a.SplitPercentage)
	legs := a.ProAmount.Add(a.AntiAmount)
	switch {
	case legs.IsPositive():
		a.TotalStake = legs
		if !pct.Div(hundred).Mul(legs).Equal(a.ProAmount) {
			pct = a.ProAmount.Div(legs).Mul(hundred)
		}
	case a.TotalStake.IsPositive():
		a.ProAmount = pct.Div(hundred).Mul(a.TotalStake)
		a.AntiAmount = a.TotalStake.Sub(a.ProAmount)
	}
	a.SplitPercentage = pct
	s.state = a
	return nil
}

// Reset clears the form back to its initial state.
func (s *Synchronizer) Reset() {
	s.state = Initial()
}

// SetQuotes updates the quotes used for valuation. Amounts are not
// touched; the next edit revalues the stake.
func (s *Synchronizer) SetQuotes(q model.Quotes) {
	s.quotes = q
}

// SetTotalStake sets the total and splits it by the current percentage.
func (s *Synchronizer) SetTotalStake(total decimal.Decimal) Allocation {
	s.split(total, s.state.SplitPercentage)
	return s.state
}

// SetSplitPercentage sets the percentage and splits the current total by
// it. The percentage is clamped to [0, 100].
func (s *Synchronizer) SetSplitPercentage(pct decimal.Decimal) Allocation {
	s.split(s.state.TotalStake, clampPercent(pct))
	return s.state
}

// SetProAmount sets the PRO leg.
func (s *Synchronizer) SetProAmount(pro decimal.Decimal) Allocation {
	if s.lockedTotal {
		total := decimal.Max(s.state.TotalStake, pro)
		s.update(total, pro, total.Sub(pro))
		return s.state
	}
	s.update(pro.Add(s.state.AntiAmount), pro, s.state.AntiAmount)
	return s.state
}

// SetAntiAmount sets the ANTI leg.
func (s *Synchronizer) SetAntiAmount(anti decimal.Decimal) Allocation {
	if s.lockedTotal {
		total := decimal.Max(s.state.TotalStake, anti)
		s.update(total, total.Sub(anti), anti)
		return s.state
	}
	s.update(s.state.ProAmount.Add(anti), s.state.ProAmount, anti)
	return s.state
}

// Indicator is the normalized PRO share for a progress bar, in [0, 100].
func (s *Synchronizer) Indicator() decimal.Decimal {
	if !s.state.TotalStake.IsPositive() {
		return DefaultSplit
	}
	return clampPercent(s.state.ProAmount.Div(s.state.TotalStake).Mul(hundred))
}

func (s *Synchronizer) split(total, pct decimal.Decimal) {
	pro := pct.Div(hundred).Mul(total)
	s.state.TotalStake = total
	s.state.SplitPercentage = pct
	s.state.ProAmount = pro
	s.state.AntiAmount = total.Sub(pro)
	s.revalue()
}

func (s *Synchronizer) update(total, pro, anti decimal.Decimal) {
	pct := DefaultSplit
	if !total.IsZero() {
		pct = pro.Div(total).Mul(hundred)
	}
	s.state.TotalStake = total
	s.state.SplitPercentage = pct
	s.state.ProAmount = pro
	s.state.AntiAmount = anti
	s.revalue()
}

// revalue prices the stake when both quotes are known and otherwise
// leaves UsdValue as it was.
func (s *Synchronizer) revalue() {
	if !s.quotes.Complete() {
		return
	}
	s.state.UsdValue = s.state.ProAmount.Mul(s.quotes.Pro.PriceUSD).
		Add(s.state.AntiAmount.Mul(s.quotes.Anti.PriceUSD))
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
