package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Save writes a Config as YAML to the specified path. Secrets are
// replaced with environment variable references before writing.
func Save(cfg *Config, path string) error {
	sanitized := *cfg
	sanitized.LLM.Default.APIKey = sanitizeSecret(cfg.LLM.Default.APIKey, "CASABOT_API_KEY")
	sanitized.Webhook.Secret = sanitizeSecret(cfg.Webhook.Secret, "CASABOT_WEBHOOK_SECRET")
	sanitized.Gateway.APIKey = sanitizeSecret(cfg.Gateway.APIKey, "CASABOT_GATEWAY_KEY")
	sanitized.Discord.Token = sanitizeSecret(cfg.Discord.Token, "DISCORD_BOT_TOKEN")

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Owner read/write only.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// sanitizeSecret replaces a literal secret with an env var reference so
// the written file never contains plaintext credentials. Values that are
// already references pass through unchanged.
func sanitizeSecret(value, envVar string) string {
	if value == "" || strings.HasPrefix(value, "${") {
		return value
	}
	return fmt.Sprintf("${%s}", envVar)
}

// FindConfigFile searches standard locations for a config file and
// returns the first that exists, or empty string.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"casabot.yaml",
		"casabot.yml",
		"configs/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ReadPassword prompts for a secret without echoing it. Falls back to a
// plain stdin read when no terminal is attached (piped input).
func ReadPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	var buf [1024]byte
	n, err := os.Stdin.Read(buf[:])
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(buf[:n])), nil
}
