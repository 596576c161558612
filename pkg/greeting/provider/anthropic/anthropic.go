// Package anthropic implements the greeting provider against the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/redialhq/redial/pkg/greeting/provider"
)

// DefaultModel is used when the request does not name one.
const DefaultModel = "claude-3-5-haiku-latest"

// Provider wraps the Anthropic Messages API.
type Provider struct {
	client anthropic.Client
}

var _ provider.Provider = (*Provider)(nil)

// Config holds configuration for the Anthropic provider.
type Config struct {
	// APIKey is the Anthropic API key.
	APIKey string

	// BaseURL overrides the API URL, mainly for tests.
	BaseURL string

	// Timeout bounds one completion round trip.
	Timeout time.Duration
}

// NewProvider creates an Anthropic-backed provider.
func NewProvider(cfg Config) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Provider{client: anthropic.NewClient(opts...)}
}

func (p *Provider) Name() string {
	return "anthropic"
}

// Complete sends one completion. The Messages API has no JSON response
// mode, so the system prompt's JSON-only instruction carries the contract.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}

	return b.String(), nil
}
