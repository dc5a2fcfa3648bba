// Package config loads casabot configuration from YAML with environment
// variable expansion, .env file support, and OS keyring secret resolution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"casabot/pkg/casabot/channels/discord"
	"casabot/pkg/casabot/channels/whatsapp"
	"casabot/pkg/casabot/dispatch"
	"casabot/pkg/casabot/llm"
	"casabot/pkg/casabot/router"
)

// Config is the full casabot configuration.
type Config struct {
	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level"`

	// DataDir holds the audit database, subscriptions and sessions.
	DataDir string `yaml:"data_dir"`

	// ActionCatalog optionally points at a YAML file with extra webhook
	// action definitions.
	ActionCatalog string `yaml:"action_catalog"`

	LLM      llm.GatewayConfig      `yaml:"llm"`
	Router   router.Options         `yaml:"router"`
	Webhook  dispatch.WebhookConfig `yaml:"webhook"`
	Gateway  GatewayConfig          `yaml:"gateway"`
	WhatsApp WhatsAppConfig         `yaml:"whatsapp"`
	Discord  DiscordConfig          `yaml:"discord"`
}

// GatewayConfig configures the inbound HTTP listener.
type GatewayConfig struct {
	// Enabled starts the HTTP listener.
	Enabled bool `yaml:"enabled"`

	// Addr is the listen address, e.g. ":8765".
	Addr string `yaml:"addr"`

	// APIKey protects inbound webhook calls when non-empty.
	APIKey string `yaml:"api_key"`

	// ReadTimeout bounds request reading.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// WhatsAppConfig wraps the channel config with an enable switch.
type WhatsAppConfig struct {
	Enabled         bool `yaml:"enabled"`
	whatsapp.Config `yaml:",inline"`
}

// DiscordConfig wraps the channel config with an enable switch.
type DiscordConfig struct {
	Enabled        bool `yaml:"enabled"`
	discord.Config `yaml:",inline"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		DataDir:  "./data",
		LLM: llm.GatewayConfig{
			Default: llm.BackendConfig{
				Provider: "openai",
				Model:    "gpt-4o-mini",
			},
		},
		Router: router.DefaultOptions(),
		Webhook: dispatch.WebhookConfig{
			Timeout: 15 * time.Second,
		},
		Gateway: GatewayConfig{
			Addr:        ":8765",
			ReadTimeout: 10 * time.Second,
		},
		WhatsApp: WhatsAppConfig{
			Enabled: true,
			Config:  whatsapp.DefaultConfig(),
		},
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} references in config
// values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Load reads the YAML config at path, expanding ${VAR} references after
// loading any .env file next to the process.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes over the defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadEnvFiles loads .env files from standard locations. godotenv never
// overwrites variables already set in the environment.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars substitutes ${VAR} and ${VAR:-default} references.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(groups[1]); ok {
			return v
		}
		return groups[2]
	})
}

// applyEnvOverrides lets the most common settings be set without a config
// file at all.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CASABOT_API_KEY"); v != "" {
		cfg.LLM.Default.APIKey = v
	}
	if v := os.Getenv("CASABOT_MODEL"); v != "" {
		cfg.LLM.Default.Model = v
	}
	if v := os.Getenv("CASABOT_BASE_URL"); v != "" {
		cfg.LLM.Default.BaseURL = v
	}
	if v := os.Getenv("CASABOT_WEBHOOK_URL"); v != "" {
		cfg.Webhook.BaseURL = v
	}
	if v := os.Getenv("CASABOT_WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("CASABOT_GATEWAY_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("CASABOT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
