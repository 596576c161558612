package config

import "time"

// Config is the full redial service configuration. Values are resolved by
// viper from (highest to lowest) environment variables with the REDIAL_
// prefix, an optional config.toml, and the defaults in defaults.go.
type Config struct {
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Memory   MemoryConfig   `mapstructure:"memory"`
	Agents   AgentsConfig   `mapstructure:"agents"`
	Greeting GreetingConfig `mapstructure:"greeting"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Events   EventsConfig   `mapstructure:"events"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// GatewayConfig holds webhook gateway settings.
type GatewayConfig struct {
	Listen string `mapstructure:"listen"`

	// SignatureHeader is the request header carrying the post-call HMAC
	// signature. The default matches the voice platform's header name.
	SignatureHeader string `mapstructure:"signature_header"`
}

// AuthConfig holds webhook authentication secrets.
type AuthConfig struct {
	// PostCallSecret is the HMAC secret for post-call webhook signatures.
	PostCallSecret string `mapstructure:"post_call_secret"`

	// ClientDataKey guards the client-data webhook via X-Api-Key.
	// When empty the endpoint is open; this is a documented trust-boundary
	// decision, not an omission.
	ClientDataKey string `mapstructure:"client_data_key"`
}

// MemoryConfig holds settings for the external memory store.
type MemoryConfig struct {
	Target  string `mapstructure:"target"`
	APIKey  string `mapstructure:"api_key"`
	Timeout uint   `mapstructure:"timeout_secs"`
}

// AgentsConfig holds voice-agent platform settings.
type AgentsConfig struct {
	Target       string `mapstructure:"target"`
	APIKey       string `mapstructure:"api_key"`
	CacheTTLHrs  uint   `mapstructure:"cache_ttl_hours"`
	FetchTimeout uint   `mapstructure:"fetch_timeout_secs"`
}

// GreetingConfig holds generation capability settings.
type GreetingConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   uint    `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	Timeout     uint    `mapstructure:"timeout_secs"`
}

// StorageConfig holds artifact and profile persistence settings.
type StorageConfig struct {
	// PayloadRoot is the directory that receives per-conversation artifacts.
	PayloadRoot string `mapstructure:"payload_root"`

	// ProfileDriver selects the Tier 1/Tier 2 store: memory, sqlite, postgres.
	ProfileDriver string `mapstructure:"profile_driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresURL   string `mapstructure:"postgres_url"`
}

// EventsConfig holds event stream publisher settings.
type EventsConfig struct {
	// Provider selects the publisher backend: nop or kafka.
	Provider string   `mapstructure:"provider"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
}

// WorkerConfig holds background processing pool settings.
type WorkerConfig struct {
	NumWorkers uint `mapstructure:"num_workers"`
	QueueSize  uint `mapstructure:"queue_size"`
}

// MemoryTimeout returns the memory store timeout as a duration.
func (c *Config) MemoryTimeout() time.Duration {
	return time.Duration(c.Memory.Timeout) * time.Second
}

// GreetingTimeout returns the generation call timeout as a duration.
func (c *Config) GreetingTimeout() time.Duration {
	return time.Duration(c.Greeting.Timeout) * time.Second
}

// AgentCacheTTL returns the agent profile cache TTL as a duration.
func (c *Config) AgentCacheTTL() time.Duration {
	return time.Duration(c.Agents.CacheTTLHrs) * time.Hour
}
