// Package memstore is the client for the external durable memory store.
//
// The store ranks and persists arbitrary facts per owner. Owners are phone
// numbers in E.164 format, which gives multi-tenant isolation for free.
// Records are immutable once written; ranking, decay, and vector search are
// the store's concern, not ours.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Salience and decay constants for emitted records.
const (
	// HighSalience marks identity facts (name, stated preferences).
	HighSalience = 0.9

	// MediumSalience marks individual user utterances.
	MediumSalience = 0.7

	// PermanentDecay disables age-based down-weighting for a record.
	PermanentDecay = 0
)

// DefaultTimeout bounds every memory store call.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable wraps transport and non-2xx failures from the store.
var ErrUnavailable = errors.New("memory store unavailable")

// Record is an immutable fact written to the store.
type Record struct {
	Content     string         `json:"content"`
	Tags        []string       `json:"tags,omitempty"`
	Salience    float64        `json:"salience"`
	DecayLambda float64        `json:"decay_lambda"`
	OwnerID     string         `json:"user_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Match is a ranked result returned by Query.
type Match struct {
	Content  string         `json:"content"`
	Sector   string         `json:"primary_sector"`
	Salience float64        `json:"salience"`
	Metadata map[string]any `json:"metadata"`
}

// Store is the surface the rest of the system consumes. The HTTP client
// implements it; tests substitute fakes.
type Store interface {
	// Query returns ranked matches for the owner, best first.
	Query(ctx context.Context, query, ownerID string, topK int) ([]Match, error)

	// Add persists a record. Duplicate records from at-least-once webhook
	// delivery are accepted; the store's ranking absorbs them.
	Add(ctx context.Context, rec Record) error

	// Summary returns the store's parsed per-owner digest, or nil when the
	// owner is unknown.
	Summary(ctx context.Context, ownerID string) (*OwnerSummary, error)
}

// ClientConfig holds configuration for the memory store client.
type ClientConfig struct {
	// Target is the store's base URL.
	Target string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds each call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client talks to the memory store over its REST API.
type Client struct {
	target     string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a memory store client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		target: cfg.Target,
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type queryRequest struct {
	Query   string            `json:"query"`
	K       int               `json:"k"`
	Filters map[string]string `json:"filters"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Query returns ranked matches for the owner.
func (c *Client) Query(ctx context.Context, query, ownerID string, topK int) ([]Match, error) {
	reqBody := queryRequest{
		Query:   query,
		K:       topK,
		Filters: map[string]string{"user_id": ownerID},
	}

	var resp queryResponse
	if err := c.post(ctx, "/memory/query", reqBody, &resp); err != nil {
		return nil, err
	}

	return resp.Matches, nil
}

// Add persists a record.
func (c *Client) Add(ctx context.Context, rec Record) error {
	return c.post(ctx, "/memory/add", rec, nil)
}

type summaryResponse struct {
	UserID  string `json:"user_id"`
	Summary string `json:"summary"`
}

// Summary fetches and parses the owner's free-text digest. Unknown owners
// yield (nil, nil).
func (c *Client) Summary(ctx context.Context, ownerID string) (*OwnerSummary, error) {
	endpoint := c.target + "/users/" + url.PathEscape(ownerID) + "/summary"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrUnavailable, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: summary returned status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var sr summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decoding summary: %v", ErrUnavailable, err)
	}

	parsed := ParseSummaryDigest(sr.Summary)
	return &parsed, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: marshaling request: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrUnavailable, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s returned status %d: %s", ErrUnavailable, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// Ensure Client implements Store.
var _ Store = (*Client)(nil)
