// Package agents fetches voice-agent configuration from the conversation
// platform and caches it so webhook handlers never block on the platform's
// latency or availability.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultFetchTimeout bounds one platform round trip.
const DefaultFetchTimeout = 30 * time.Second

// Config is the slice of platform agent configuration the greeting
// synthesizer and response builder care about.
type Config struct {
	AgentID      string `json:"agent_id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	FirstMessage string `json:"first_message"`
	Language     string `json:"language"`
}

// Fetcher retrieves one agent's configuration from upstream.
type Fetcher interface {
	Fetch(ctx context.Context, agentID string) (*Config, error)
}

// Client fetches agent configuration from the platform's REST API.
type Client struct {
	target string
	apiKey string
	client *http.Client
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a platform client. target is the API base URL, apiKey
// is the platform workspace key.
func NewClient(target, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Client{
		target: target,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// platformAgent mirrors the platform's nested agent detail payload.
type platformAgent struct {
	AgentID            string `json:"agent_id"`
	Name               string `json:"name"`
	ConversationConfig struct {
		Agent struct {
			FirstMessage string `json:"first_message"`
			Language     string `json:"language"`
			Prompt       struct {
				Prompt string `json:"prompt"`
			} `json:"prompt"`
		} `json:"agent"`
	} `json:"conversation_config"`
}

// Fetch retrieves one agent's configuration from the platform.
func (c *Client) Fetch(ctx context.Context, agentID string) (*Config, error) {
	endpoint := fmt.Sprintf("%s/v1/convai/agents/%s", c.target, url.PathEscape(agentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent %s: %w", agentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("platform returned %d for agent %s: %s", resp.StatusCode, agentID, string(body))
	}

	var detail platformAgent
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("failed to decode agent %s: %w", agentID, err)
	}

	return &Config{
		AgentID:      detail.AgentID,
		Name:         detail.Name,
		SystemPrompt: detail.ConversationConfig.Agent.Prompt.Prompt,
		FirstMessage: detail.ConversationConfig.Agent.FirstMessage,
		Language:     detail.ConversationConfig.Agent.Language,
	}, nil
}
