// Package provider defines the completion interface the greeting
// synthesizer speaks, with one implementation per model vendor.
package provider

import "context"

// Request is one JSON-mode completion request.
type Request struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Provider produces a single completion for a synthesis request.
// Implementations must honor ctx cancellation and request JSON output
// where their API supports enforcing it.
type Provider interface {
	// Name returns the canonical provider name (e.g., "openai", "anthropic").
	Name() string

	// Complete returns the raw model output for the request.
	Complete(ctx context.Context, req Request) (string, error)
}
