// Package chain reads SPL token balances from a Solana JSON-RPC node.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/antitoken/collider/internal/ballot"
)

// ErrRPC is returned when the node answers with a JSON-RPC error or a
// non-2xx status.
var ErrRPC = errors.New("chain: rpc error")

// Client is a minimal Solana JSON-RPC client.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Int64
}

// NewClient creates a client for the given RPC endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type tokenAccounts struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						TokenAmount struct {
							UIAmountString string `json:"uiAmountString"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// TokenBalance sums the owner's token accounts for one mint. An owner
// with no accounts holds zero.
func (c *Client) TokenBalance(ctx context.Context, owner, mint string) (decimal.Decimal, error) {
	params := []any{
		owner,
		map[string]string{"mint": mint},
		map[string]string{"encoding": "jsonParsed"},
	}

	var accounts tokenAccounts
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &accounts); err != nil {
		return decimal.Zero, fmt.Errorf("chain: token balance %s/%s: %w", owner, mint, err)
	}

	total := decimal.Zero
	for _, acc := range accounts.Value {
		s := acc.Account.Data.Parsed.Info.TokenAmount.UIAmountString
		if s == "" {
			continue
		}
		amt, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("chain: parse amount %q: %w", s, err)
		}
		total = total.Add(amt)
	}
	return total, nil
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrRPC, resp.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%w: %d %s", ErrRPC, envelope.Error.Code, envelope.Error.Message)
	}
	return json.Unmarshal(envelope.Result, result)
}

// Holdings reports the on-chain ANTI and PRO balances of a wallet.
type Holdings struct {
	client   *Client
	antiMint string
	proMint  string
}

// NewHoldings creates a Holdings reader for the two stake mints.
func NewHoldings(client *Client, antiMint, proMint string) *Holdings {
	return &Holdings{client: client, antiMint: antiMint, proMint: proMint}
}

// Holdings fetches both balances concurrently.
func (h *Holdings) Holdings(ctx context.Context, wallet string) (ballot.Available, error) {
	var out ballot.Available
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Anti, err = h.client.TokenBalance(ctx, wallet, h.antiMint)
		return err
	})
	g.Go(func() error {
		var err error
		out.Pro, err = h.client.TokenBalance(ctx, wallet, h.proMint)
		return err
	})
	if err := g.Wait(); err != nil {
		return ballot.Available{}, err
	}
	return out, nil
}
