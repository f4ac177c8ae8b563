// Package feed fetches the public DeFiLlama pool and protocol feeds.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Default public endpoints.
const (
	DefaultPoolsURL     = "https://yields.llama.fi/pools"
	DefaultProtocolsURL = "https://api.llama.fi/protocols"
)

// Client fetches JSON documents from the configured feed endpoints.
type Client struct {
	poolsURL     string
	protocolsURL string
	httpClient   *http.Client
}

// NewClient creates a new feed client.
func NewClient(poolsURL, protocolsURL string, timeout time.Duration) *Client {
	if poolsURL == "" {
		poolsURL = DefaultPoolsURL
	}
	if protocolsURL == "" {
		protocolsURL = DefaultProtocolsURL
	}

	return &Client{
		poolsURL:     poolsURL,
		protocolsURL: protocolsURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// poolsPayload is the envelope of the yields feed.
type poolsPayload struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// FetchPools retrieves the pool list. Transport errors, non-2xx responses
// and malformed payloads are all fatal for the run.
func (c *Client) FetchPools(ctx context.Context) ([]PoolRecord, error) {
	resp, err := c.doRequest(ctx, c.poolsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch pools: %w", err)
	}
	defer resp.Body.Close()

	var payload poolsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode pools payload: %w", err)
	}
	// A RawMessage holds the literal bytes, so an explicit null is four
	// bytes long and must be rejected like an absent list.
	data := bytes.TrimSpace(payload.Data)
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("unexpected pools payload: missing data list")
	}

	var records []PoolRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unexpected pools payload: data is not a list: %w", err)
	}
	return records, nil
}

// FetchProtocols retrieves the protocol metadata list.
func (c *Client) FetchProtocols(ctx context.Context) ([]ProtocolRecord, error) {
	resp, err := c.doRequest(ctx, c.protocolsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch protocols: %w", err)
	}
	defer resp.Body.Close()

	var records []ProtocolRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode protocols payload: %w", err)
	}
	return records, nil
}

// doRequest performs a GET with bounded retry on transport errors and 5xx.
// Client errors (4xx) fail immediately.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	const maxRetries = 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		} else if resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		} else {
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
