package config

import (
	"fmt"
	"strings"
)

// Validate checks that every setting required to serve webhooks is present.
// Missing settings are reported together by their dotted key names so a
// broken deployment can be fixed in one pass.
func (c *Config) Validate() error {
	var missing []string

	if c.Auth.PostCallSecret == "" {
		missing = append(missing, "auth.post_call_secret")
	}
	if c.Memory.Target == "" {
		missing = append(missing, "memory.target")
	}
	if c.Storage.PayloadRoot == "" {
		missing = append(missing, "storage.payload_root")
	}

	switch c.Storage.ProfileDriver {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			missing = append(missing, "storage.sqlite_path")
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			missing = append(missing, "storage.postgres_url")
		}
	default:
		return fmt.Errorf("unknown profile driver %q (expected memory, sqlite, or postgres)", c.Storage.ProfileDriver)
	}

	if c.Events.Provider == "kafka" && len(c.Events.Brokers) == 0 {
		missing = append(missing, "events.brokers")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}
