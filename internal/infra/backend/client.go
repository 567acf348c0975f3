// Package backend implements the client for the hosted case backend: a
// PostgREST-style data API reached through From(table) query builders, a
// token-based auth API, and server-side RPC functions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenProvider supplies the bearer token attached to data calls. An empty
// token sends the request with the API key only.
type TokenProvider interface {
	AccessToken() string
}

// Config holds backend connection settings.
type Config struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// Querier is the call surface shared by the plain client and the resilient
// decorator, so call sites do not care which one they hold.
type Querier interface {
	From(table string) *QueryBuilder
	RPC(ctx context.Context, fn string, args any, dest any) error
}

// Client talks to the backend REST API. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tokens  TokenProvider
	log     *slog.Logger

	// observe, when set, receives the outcome of every terminal call.
	observe func(operation string, d time.Duration, err error)
}

// NewClient creates a backend client. tokens may be nil for key-only access.
func NewClient(cfg Config, tokens TokenProvider) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     slog.Default().With("component", "backend"),
	}
}

// SetObserver installs a hook receiving every terminal call outcome
// (metrics, latency feedback into the network monitor).
func (c *Client) SetObserver(fn func(operation string, d time.Duration, err error)) {
	c.observe = fn
}

// From starts a query against a table.
func (c *Client) From(table string) *QueryBuilder {
	return newQueryBuilder(table, c.do)
}

// RPC invokes a server-side function. dest may be nil when the result is
// not needed.
func (c *Client) RPC(ctx context.Context, fn string, args any, dest any) error {
	body, err := c.do(ctx, &request{
		method: http.MethodPost,
		path:   "/rest/v1/rpc/" + fn,
		body:   args,
	})
	if err != nil {
		return err
	}
	if dest == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode rpc %s result: %w", fn, err)
	}
	return nil
}

// HealthURL returns the endpoint the network monitor probes.
func (c *Client) HealthURL() string {
	return c.baseURL + "/rest/v1/"
}

// request is one terminal data call before it is put on the wire.
type request struct {
	method string
	path   string
	query  url.Values
	prefer []string
	body   any
}

func (r *request) operation() string {
	switch r.method {
	case http.MethodGet:
		return "select"
	case http.MethodPost:
		if strings.Contains(r.path, "/rpc/") {
			return "rpc"
		}
		for _, p := range r.prefer {
			if strings.Contains(p, "merge-duplicates") {
				return "upsert"
			}
		}
		return "insert"
	case http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(r.method)
	}
}

// do issues one terminal call and returns the raw response body. This is the
// single choke point the resilient decorator wraps.
func (c *Client) do(ctx context.Context, r *request) ([]byte, error) {
	start := time.Now()
	body, err := c.send(ctx, r)
	if c.observe != nil {
		c.observe(r.operation(), time.Since(start), err)
	}
	return body, err
}

func (c *Client) send(ctx context.Context, r *request) ([]byte, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var reqBody io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, p := range r.prefer {
		req.Header.Add("Prefer", p)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, data)
	}

	return data, nil
}

func parseError(status int, body []byte) error {
	apiErr := &Error{Status: status}
	if len(body) > 0 {
		// Best effort; the raw body stands in when decoding fails.
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
