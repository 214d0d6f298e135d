package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/antitoken/collider/internal/model"
)

const (
	antiMint = "HB8KrN7Bb3iLWUPsozp67kS4gxtbA4W5QJX4wKPvpump"
	proMint  = "CWFa2nxUMf5d1WwKtG9FS9kjUKGwKXWSjH8hFdWspump"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *DexScreener {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewDexScreener(srv.URL, antiMint, proMint, time.Second)
	c.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestDexScreener_Quotes(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/"+antiMint):
			w.Write([]byte(`{"pairs":[{"priceUsd":"0.0012345678","fdv":1234567},{"priceUsd":"9"}]}`))
		case strings.HasSuffix(r.URL.Path, "/"+proMint):
			w.Write([]byte(`{"pairs":[{"priceUsd":"0.5","fdv":500000}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	q, err := c.Quotes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Complete() {
		t.Fatalf("expected both quotes, got %+v", q)
	}
	if !q.Anti.PriceUSD.Equal(decimal.RequireFromString("0.00123")) {
		t.Errorf("anti price should be rounded to 5 places, got %s", q.Anti.PriceUSD)
	}
	if !q.Anti.MarketCapUSD.Equal(decimal.NewFromInt(1234567)) {
		t.Errorf("anti market cap: got %s", q.Anti.MarketCapUSD)
	}
	if q.Anti.Symbol != model.SymbolAnti || q.Pro.Symbol != model.SymbolPro {
		t.Errorf("unexpected symbols %q/%q", q.Anti.Symbol, q.Pro.Symbol)
	}
	if !q.Pro.PriceUSD.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("pro price: got %s", q.Pro.PriceUSD)
	}
}

func TestDexScreener_NoPairsIsNilQuote(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/"+antiMint) {
			w.Write([]byte(`{"pairs":null}`))
			return
		}
		w.Write([]byte(`{"pairs":[{"priceUsd":"1.25","fdv":10}]}`))
	})

	q, err := c.Quotes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Anti != nil {
		t.Errorf("expected nil anti quote, got %+v", q.Anti)
	}
	if q.Pro == nil {
		t.Fatal("expected pro quote")
	}
	if q.Complete() {
		t.Error("quotes should be incomplete")
	}
}

func TestDexScreener_UpstreamError(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.Quotes(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if calls.Load() > 2 {
		t.Errorf("expected no retries, got %d calls", calls.Load())
	}
}

func TestDexScreener_BadPrice(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[{"priceUsd":"n/a"}]}`))
	})
	if _, err := c.Quotes(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStatic(t *testing.T) {
	want := model.Quotes{Pro: &model.PriceQuote{Symbol: model.SymbolPro}}
	got, err := Static(want).Quotes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Pro != want.Pro || got.Anti != nil {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
