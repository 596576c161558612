// Package api provides the webhook gateway the voice-agent platform talks
// to: conversation initiation, mid-call memory search, and post-call
// completion ingestion.
package api

// Config is the gateway server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// SignatureHeader is the header carrying the completion webhook
	// signature (e.g., "elevenlabs-signature").
	SignatureHeader string

	// PostCallSecret is the shared HMAC secret for completion webhooks.
	PostCallSecret string

	// ClientDataKey guards the initiation webhook when set. Empty leaves
	// the endpoint open.
	ClientDataKey string
}
