// Package model defines the domain types shared across the collider service.
// Token amounts and USD values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token class symbols.
const (
	SymbolAnti   = "ANTI"
	SymbolPro    = "PRO"
	SymbolBaryon = "BARYON"
	SymbolPhoton = "PHOTON"
)

// Vote is an immutable ledger record of one submitted stake.
// Baryon and Photon are computed by the service, not trusted from clients.
type Vote struct {
	ID           string          `json:"id" db:"id"`
	Wallet       string          `json:"wallet" db:"wallet"`
	AntiTokens   decimal.Decimal `json:"anti_tokens" db:"anti_tokens"`
	ProTokens    decimal.Decimal `json:"pro_tokens" db:"pro_tokens"`
	BaryonTokens decimal.Decimal `json:"baryon_tokens" db:"baryon_tokens"`
	PhotonTokens decimal.Decimal `json:"photon_tokens" db:"photon_tokens"`
	Policy       string          `json:"policy" db:"policy"`
	Signature    string          `json:"signature" db:"signature"` // base64, stored as received
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Balance is the committed stake and accrued rewards for one wallet,
// summed over its votes.
type Balance struct {
	Wallet string          `json:"wallet"`
	Anti   decimal.Decimal `json:"anti"`
	Pro    decimal.Decimal `json:"pro"`
	Baryon decimal.Decimal `json:"baryon"`
	Photon decimal.Decimal `json:"photon"`
}

// Totals aggregates every recorded vote.
type Totals struct {
	Votes  int             `json:"votes"`
	Voters int             `json:"voters"`
	Anti   decimal.Decimal `json:"anti"`
	Pro    decimal.Decimal `json:"pro"`
	Baryon decimal.Decimal `json:"baryon"`
	Photon decimal.Decimal `json:"photon"`
}

// PriceQuote is a live market quote for one token class.
type PriceQuote struct {
	Symbol       string          `json:"symbol"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	MarketCapUSD decimal.Decimal `json:"market_cap_usd"`
	FetchedAt    time.Time       `json:"fetched_at"`
}

// Quotes pairs the quotes for the two stake token classes. A nil entry
// means no quote is available for that class.
type Quotes struct {
	Anti *PriceQuote `json:"anti"`
	Pro  *PriceQuote `json:"pro"`
}

// Complete reports whether both quotes are present.
func (q Quotes) Complete() bool {
	return q.Anti != nil && q.Pro != nil
}
