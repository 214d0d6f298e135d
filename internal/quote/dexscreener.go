package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/antitoken/collider/internal/model"
)

// DefaultDexScreenerURL is the public DexScreener API root.
const DefaultDexScreenerURL = "https://api.dexscreener.com"

// ErrUpstream is returned when the market-data API answers with a non-2xx
// status.
var ErrUpstream = errors.New("quote: upstream error")

// DexScreener fetches token quotes from the DexScreener token endpoint.
// Each mint's first listed pair is taken as its quote.
type DexScreener struct {
	baseURL    string
	antiMint   string
	proMint    string
	httpClient *http.Client
	now        func() time.Time
}

// NewDexScreener creates a client for the given API root and token mints.
func NewDexScreener(baseURL, antiMint, proMint string, timeout time.Duration) *DexScreener {
	if baseURL == "" {
		baseURL = DefaultDexScreenerURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DexScreener{
		baseURL:    baseURL,
		antiMint:   antiMint,
		proMint:    proMint,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

type tokenResponse struct {
	Pairs []struct {
		PriceUSD string          `json:"priceUsd"`
		FDV      decimal.Decimal `json:"fdv"`
	} `json:"pairs"`
}

// Quotes fetches both tokens concurrently. A token without any listed
// pair yields a nil quote.
func (c *DexScreener) Quotes(ctx context.Context) (model.Quotes, error) {
	var q model.Quotes
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		q.Anti, err = c.token(ctx, model.SymbolAnti, c.antiMint)
		return err
	})
	g.Go(func() error {
		var err error
		q.Pro, err = c.token(ctx, model.SymbolPro, c.proMint)
		return err
	})

	if err := g.Wait(); err != nil {
		return model.Quotes{}, err
	}
	return q, nil
}

func (c *DexScreener) token(ctx context.Context, symbol, mint string) (*model.PriceQuote, error) {
	path := "/latest/dex/tokens/" + url.PathEscape(mint)

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("quote: fetch %s: %w", symbol, err)
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("quote: decode %s: %w", symbol, err)
	}
	if len(resp.Pairs) == 0 {
		return nil, nil
	}

	price, err := decimal.NewFromString(resp.Pairs[0].PriceUSD)
	if err != nil {
		return nil, fmt.Errorf("quote: parse %s price %q: %w", symbol, resp.Pairs[0].PriceUSD, err)
	}

	return &model.PriceQuote{
		Symbol:       symbol,
		PriceUSD:     price.Round(5),
		MarketCapUSD: resp.Pairs[0].FDV,
		FetchedAt:    c.now().UTC(),
	}, nil
}

func (c *DexScreener) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
