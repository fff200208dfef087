// Package config loads the ChatRelay configuration from defaults, an
// optional TOML file, and CHATRELAY_-prefixed environment variables, in that
// order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`

	Upstream struct {
		APIKey      string `koanf:"api_key"`
		AssistantID string `koanf:"assistant_id"`
		Model       string `koanf:"model"`
		BaseURL     string `koanf:"base_url"`
	} `koanf:"upstream"`

	Relay struct {
		PollIntervalMs  int    `koanf:"poll_interval_ms"`
		PollTimeoutSec  int    `koanf:"poll_timeout_sec"`
		MaxHistoryTurns int    `koanf:"max_history_turns"`
		SystemPrompt    string `koanf:"system_prompt"`
	} `koanf:"relay"`

	Session struct {
		Store      string `koanf:"store"` // memory | bolt
		BoltPath   string `koanf:"bolt_path"`
		TTLMinutes int    `koanf:"ttl_minutes"` // 0 = sessions never expire
	} `koanf:"session"`

	Log struct {
		Level  string `koanf:"level"`
		Pretty bool   `koanf:"pretty"`
	} `koanf:"log"`
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Relay.PollIntervalMs) * time.Millisecond
}

// PollTimeout returns the poll budget as a duration.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Relay.PollTimeoutSec) * time.Second
}

// SessionTTL returns the session expiry as a duration (0 disables expiry).
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":             8888,
		"relay.poll_interval_ms":  1000,
		"relay.poll_timeout_sec":  60,
		"relay.max_history_turns": 16,
		"session.store":           "memory",
		"session.ttl_minutes":     0,
		"log.level":               "info",
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try to load from default locations
		defaultPaths := []string{"./chatrelay.toml", "$HOME/.chatrelay.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix CHATRELAY_
	k.Load(env.Provider("CHATRELAY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "CHATRELAY_")), "_", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	// Create sample configuration
	sampleConfig := `# ChatRelay Configuration

[server]
port = 8888

[upstream]
api_key = "your-api-key"
assistant_id = "asst_your_assistant"
model = "gpt-4o-mini"

[relay]
poll_interval_ms = 1000
poll_timeout_sec = 60
max_history_turns = 16

[session]
store = "memory"
# store = "bolt"
# bolt_path = "./chatrelay-data/sessions.bolt"
ttl_minutes = 0

[log]
level = "info"
pretty = true
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Upstream.APIKey == "" {
		return fmt.Errorf("upstream api_key is required")
	}

	if config.Server.Port <= 0 {
		return fmt.Errorf("server port must be positive")
	}

	switch config.Session.Store {
	case "memory":
	case "bolt":
		if config.Session.BoltPath == "" {
			return fmt.Errorf("session bolt_path is required for the bolt store")
		}
	default:
		return fmt.Errorf("unknown session store %q (expected memory or bolt)", config.Session.Store)
	}

	if config.Relay.PollIntervalMs <= 0 {
		return fmt.Errorf("relay poll_interval_ms must be positive")
	}
	if config.Relay.PollTimeoutSec <= 0 {
		return fmt.Errorf("relay poll_timeout_sec must be positive")
	}

	return nil
}
