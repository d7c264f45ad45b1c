package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"liquidityShield/internal/model"
)

func TestWelcomeData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mainnet/welcome" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"tokens": [
				{"dlt_id": "0xBNT", "symbol": "BNT", "decimals": 18, "rate": {"usd": "2.15"}}
			],
			"pools": [
				{"pool_dlt_id": "0xPOOL", "name": "BNT/ETH", "reserves": [
					{"dlt_id": "0xBNT", "symbol": "BNT", "balance": "1000"}
				]}
			]
		}`))
	}))
	defer server.Close()

	snapshot, err := NewClient(server.URL).WelcomeData(context.Background(), model.NetworkMainnet)
	if err != nil {
		t.Fatalf("WelcomeData: %v", err)
	}
	if len(snapshot.Tokens) != 1 || snapshot.Tokens[0].Symbol != "BNT" {
		t.Fatalf("tokens: %+v", snapshot.Tokens)
	}
	if snapshot.Tokens[0].Rate.USD.String() != "2.15" {
		t.Fatalf("rate: got %s", snapshot.Tokens[0].Rate.USD)
	}
	if len(snapshot.Pools) != 1 || snapshot.Pools[0].PoolID != "0xPOOL" {
		t.Fatalf("pools: %+v", snapshot.Pools)
	}
}

func TestTokenMeta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ropsten/tokens" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"contract": "0xBNT", "precision": 18, "symbol": "BNT", "name": "Bancor"}]`))
	}))
	defer server.Close()

	tokens, err := NewClient(server.URL).TokenMeta(context.Background(), model.NetworkRopsten)
	if err != nil {
		t.Fatalf("TokenMeta: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Address != "0xBNT" || tokens[0].Decimals != 18 {
		t.Fatalf("tokens: %+v", tokens)
	}
}

func TestWelcomeDataServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL).WelcomeData(context.Background(), model.NetworkMainnet); err == nil {
		t.Fatalf("expected error on 502")
	}
}
