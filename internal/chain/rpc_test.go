package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const (
	owner    = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	antiMint = "HB8KrN7Bb3iLWUPsozp67kS4gxtbA4W5QJX4wKPvpump"
	proMint  = "CWFa2nxUMf5d1WwKtG9FS9kjUKGwKXWSjH8hFdWspump"
)

func accountsJSON(amounts ...string) string {
	type info struct {
		TokenAmount struct {
			UIAmountString string `json:"uiAmountString"`
		} `json:"tokenAmount"`
	}
	var value []map[string]any
	for _, a := range amounts {
		var i info
		i.TokenAmount.UIAmountString = a
		value = append(value, map[string]any{
			"account": map[string]any{"data": map[string]any{"parsed": map[string]any{"info": i}}},
		})
	}
	b, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 1,
		"result": map[string]any{"value": value},
	})
	return string(b)
}

func newRPCServer(t *testing.T, byMint map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
			return
		}
		if req.Method != "getTokenAccountsByOwner" {
			t.Errorf("unexpected method %q", req.Method)
		}
		filter, _ := req.Params[1].(map[string]any)
		mint, _ := filter["mint"].(string)
		resp, ok := byMint[mint]
		if !ok {
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param"}}`))
			return
		}
		w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second)
}

func TestTokenBalance_SumsAccounts(t *testing.T) {
	c := newRPCServer(t, map[string]string{antiMint: accountsJSON("100.5", "20", "")})

	bal, err := c.TokenBalance(context.Background(), owner, antiMint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bal.Equal(decimal.NewFromFloat(120.5)) {
		t.Errorf("expected 120.5, got %s", bal)
	}
}

func TestTokenBalance_NoAccounts(t *testing.T) {
	c := newRPCServer(t, map[string]string{antiMint: accountsJSON()})

	bal, err := c.TokenBalance(context.Background(), owner, antiMint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("expected zero, got %s", bal)
	}
}

func TestTokenBalance_RPCError(t *testing.T) {
	c := newRPCServer(t, map[string]string{})

	_, err := c.TokenBalance(context.Background(), owner, antiMint)
	if !errors.Is(err, ErrRPC) {
		t.Fatalf("expected ErrRPC, got %v", err)
	}
}

func TestHoldings(t *testing.T) {
	c := newRPCServer(t, map[string]string{
		antiMint: accountsJSON("7"),
		proMint:  accountsJSON("3.25"),
	})

	avail, err := NewHoldings(c, antiMint, proMint).Holdings(context.Background(), owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !avail.Anti.Equal(decimal.NewFromInt(7)) || !avail.Pro.Equal(decimal.NewFromFloat(3.25)) {
		t.Errorf("unexpected holdings %+v", avail)
	}
}
