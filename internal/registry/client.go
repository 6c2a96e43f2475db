// Package registry talks to the external client registry over REST.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/errors"
)

// DefaultTimeout bounds a single registry request. Requests are never retried.
const DefaultTimeout = 10 * time.Second

// Config configures the registry client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client creates and lists clients on the registry.
type Client struct {
	baseURL string
	client  *http.Client
}

// New builds a registry client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("registry: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, client: httpClient}, nil
}

// BaseURL returns the normalized registry root.
func (c *Client) BaseURL() string { return c.baseURL }

// CreateClient posts payload to /clients/ and returns the registry's record.
// Any transport error, non-2xx status or undecodable body is REMOTE_FAILURE.
func (c *Client) CreateClient(ctx context.Context, payload crm.Payload) (*crm.ClientRecord, error) {
	var resp clientDTO
	if err := c.do(ctx, http.MethodPost, "/clients/", payload, &resp); err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	rec := resp.record()
	return &rec, nil
}

// ListClients fetches every client in registry order.
func (c *Client) ListClients(ctx context.Context) ([]crm.ClientRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/clients/", nil, &raw); err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	dtos, err := decodeList(raw)
	if err != nil {
		return nil, errors.NewRemoteFailure(err)
	}
	out := make([]crm.ClientRecord, len(dtos))
	for i, d := range dtos {
		out[i] = d.record()
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, target any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
