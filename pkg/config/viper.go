// Package config loads and validates the redial service configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It loads a .env file when present (values never override real environment
// variables), sets defaults from NewDefaultConfig(), reads config.toml from
// configDir (or the working directory when empty), and binds environment
// variables with the REDIAL_ prefix.
//
// Config precedence (highest to lowest):
//  1. Environment variables (REDIAL_GATEWAY_LISTEN, REDIAL_AUTH_POST_CALL_SECRET, ...)
//  2. config.toml file values
//  3. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	// Same role as the original deployment's .env file; missing file is fine.
	_ = godotenv.Load()

	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("REDIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load resolves the full Config from the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	// Gateway
	v.SetDefault("gateway.listen", d.Gateway.Listen)
	v.SetDefault("gateway.signature_header", d.Gateway.SignatureHeader)

	// Auth
	v.SetDefault("auth.post_call_secret", d.Auth.PostCallSecret)
	v.SetDefault("auth.client_data_key", d.Auth.ClientDataKey)

	// Memory store
	v.SetDefault("memory.target", d.Memory.Target)
	v.SetDefault("memory.api_key", d.Memory.APIKey)
	v.SetDefault("memory.timeout_secs", d.Memory.Timeout)

	// Agent platform
	v.SetDefault("agents.target", d.Agents.Target)
	v.SetDefault("agents.api_key", d.Agents.APIKey)
	v.SetDefault("agents.cache_ttl_hours", d.Agents.CacheTTLHrs)
	v.SetDefault("agents.fetch_timeout_secs", d.Agents.FetchTimeout)

	// Greeting generation
	v.SetDefault("greeting.provider", d.Greeting.Provider)
	v.SetDefault("greeting.api_key", d.Greeting.APIKey)
	v.SetDefault("greeting.model", d.Greeting.Model)
	v.SetDefault("greeting.max_tokens", d.Greeting.MaxTokens)
	v.SetDefault("greeting.temperature", d.Greeting.Temperature)
	v.SetDefault("greeting.timeout_secs", d.Greeting.Timeout)

	// Storage
	v.SetDefault("storage.payload_root", d.Storage.PayloadRoot)
	v.SetDefault("storage.profile_driver", d.Storage.ProfileDriver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_url", d.Storage.PostgresURL)

	// Event stream
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Worker pool
	v.SetDefault("worker.num_workers", d.Worker.NumWorkers)
	v.SetDefault("worker.queue_size", d.Worker.QueueSize)
}
