package config

const (
	defaultListen          = ":8090"
	defaultSignatureHeader = "elevenlabs-signature"

	defaultMemoryTarget  = "http://localhost:8765"
	defaultMemoryTimeout = 10

	defaultAgentsTarget  = "https://api.elevenlabs.io"
	defaultCacheTTLHours = 24
	defaultFetchTimeout  = 30

	defaultGreetingProvider = "openai"
	defaultGreetingModel    = "gpt-4o-mini"
	defaultMaxTokens        = 150
	defaultTemperature      = 0.7
	defaultGreetingTimeout  = 30

	defaultPayloadRoot   = "payloads"
	defaultProfileDriver = "sqlite"
	defaultSQLitePath    = "redial.db"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "redial.call.processed"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Listen:          defaultListen,
			SignatureHeader: defaultSignatureHeader,
		},
		Memory: MemoryConfig{
			Target:  defaultMemoryTarget,
			Timeout: defaultMemoryTimeout,
		},
		Agents: AgentsConfig{
			Target:       defaultAgentsTarget,
			CacheTTLHrs:  defaultCacheTTLHours,
			FetchTimeout: defaultFetchTimeout,
		},
		Greeting: GreetingConfig{
			Provider:    defaultGreetingProvider,
			Model:       defaultGreetingModel,
			MaxTokens:   defaultMaxTokens,
			Temperature: defaultTemperature,
			Timeout:     defaultGreetingTimeout,
		},
		Storage: StorageConfig{
			PayloadRoot:   defaultPayloadRoot,
			ProfileDriver: defaultProfileDriver,
			SQLitePath:    defaultSQLitePath,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
