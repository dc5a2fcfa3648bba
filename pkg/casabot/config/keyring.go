// keyring.go stores the LLM API key in the operating system's native
// keyring (Secret Service/GNOME Keyring on Linux, Keychain on macOS,
// Credential Manager on Windows).
//
// Secret resolution priority:
//  1. OS keyring (encrypted by the OS)
//  2. Environment variable (CASABOT_API_KEY, OPENAI_API_KEY)
//  3. config.yaml value (plaintext on disk, least preferred)
package config

import (
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "casabot"
	keyringAPIKey  = "api_key"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring, "" when not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible with a
// write+delete cycle.
func KeyringAvailable() bool {
	const testKey = "__casabot_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveAPIKey fills cfg.LLM.Default.APIKey using the priority chain:
// keyring, then environment, then the value already in the config.
func ResolveAPIKey(cfg *Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	if key := GetKeyring(keyringAPIKey); key != "" {
		cfg.LLM.Default.APIKey = key
		logger.Debug("api key resolved from keyring")
		return
	}

	for _, env := range []string{"CASABOT_API_KEY", "OPENAI_API_KEY"} {
		if key := os.Getenv(env); key != "" {
			cfg.LLM.Default.APIKey = key
			logger.Debug("api key resolved from environment", "var", env)
			return
		}
	}

	if cfg.LLM.Default.APIKey != "" {
		logger.Warn("api key loaded from config file, consider `casabot setup` to store it in the keyring")
	}
}

// StoreAPIKey saves the LLM API key in the keyring.
func StoreAPIKey(value string) error {
	return StoreKeyring(keyringAPIKey, value)
}
