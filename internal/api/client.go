// Package api talks to the hosted price/metadata service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"liquidityShield/internal/model"
)

const defaultTimeout = 15 * time.Second

// Client fetches welcome data (token/pool price list) and token metadata.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// WelcomeData returns the current token and pool price snapshot.
func (c *Client) WelcomeData(ctx context.Context, network model.NetworkVersion) (model.APISnapshot, error) {
	var snapshot model.APISnapshot
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/welcome", c.baseURL, network), &snapshot); err != nil {
		return model.APISnapshot{}, fmt.Errorf("welcome data: %w", err)
	}
	return snapshot, nil
}

// TokenMeta returns the hosted token list for a network.
func (c *Client) TokenMeta(ctx context.Context, network model.NetworkVersion) ([]model.TokenMeta, error) {
	var tokens []model.TokenMeta
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/tokens", c.baseURL, network), &tokens); err != nil {
		return nil, fmt.Errorf("token meta: %w", err)
	}
	return tokens, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
