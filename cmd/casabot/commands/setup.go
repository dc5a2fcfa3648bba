package commands

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"casabot/pkg/casabot/config"
)

// newSetupCmd creates the `casabot setup` command for interactive
// configuration.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Starts an interactive wizard that creates your initial config.yaml.
Asks for the model, API endpoint, webhook target, and channels. The API
key goes to the OS keyring, never into the file.

Examples:
  casabot setup`,
		RunE: runSetup,
	}
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)
	cfg := config.DefaultConfig()

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║           Casabot Setup Wizard           ║")
	fmt.Println("╚══════════════════════════════════════════╝")
	fmt.Println()

	// Step 1: model.
	type modelOption struct {
		id   string
		desc string
	}
	models := []modelOption{
		{"gpt-4o-mini", "fast and cheap (default)"},
		{"gpt-4o", "great all-around"},
		{"gpt-4.1-mini", "newer mini model"},
		{"local", "local OpenAI-compatible server (Ollama, llama.cpp)"},
	}

	fmt.Println("1. Select LLM model:")
	for i, m := range models {
		marker := "  "
		if m.id == cfg.LLM.Default.Model {
			marker = " *"
		}
		fmt.Printf("   %s %d) %-14s %s\n", marker, i+1, m.id, m.desc)
	}
	fmt.Printf("   Choose [1-%d] or type a model name [%s]: ", len(models), cfg.LLM.Default.Model)
	if input := readLine(reader); input != "" {
		if num, err := strconv.Atoi(input); err == nil {
			if num >= 1 && num <= len(models) {
				cfg.LLM.Default.Model = models[num-1].id
			} else {
				fmt.Printf("   [!] Invalid number, keeping %q.\n", cfg.LLM.Default.Model)
			}
		} else {
			cfg.LLM.Default.Model = input
		}
	}

	if cfg.LLM.Default.Model == "local" {
		cfg.LLM.Default.Provider = "local"
		cfg.LLM.Default.Model = "llama3"
		fmt.Printf("   Local model name [%s]: ", cfg.LLM.Default.Model)
		if m := readLine(reader); m != "" {
			cfg.LLM.Default.Model = m
		}
		cfg.LLM.Default.BaseURL = "http://localhost:11434/v1"
	}

	// Step 2: API base URL.
	fmt.Println()
	fmt.Printf("2. API base URL (empty for provider default) [%s]: ", cfg.LLM.Default.BaseURL)
	if url := readLine(reader); url != "" {
		cfg.LLM.Default.BaseURL = url
	}

	// Step 3: API key.
	if cfg.LLM.Default.Provider != "local" {
		fmt.Println()
		apiKey, err := config.ReadPassword("3. API key (hidden input, Enter to skip): ")
		if err != nil {
			fmt.Print("3. API key (or press Enter to skip): ")
			apiKey = readLine(reader)
		}
		if apiKey != "" {
			if err := config.StoreAPIKey(apiKey); err != nil {
				fmt.Println("   [!] OS keyring unavailable. Set CASABOT_API_KEY in .env instead.")
			} else {
				fmt.Println("   API key stored in the OS keyring.")
			}
		} else {
			fmt.Println("   Skipped. Set CASABOT_API_KEY or run setup again later.")
		}
	}

	// Step 4: webhook target.
	fmt.Println()
	fmt.Println("   Automation actions POST to a Home Assistant style webhook")
	fmt.Println("   endpoint, e.g. http://homeassistant.local:8123/api")
	fmt.Println()
	fmt.Printf("4. Webhook base URL [%s]: ", cfg.Webhook.BaseURL)
	if url := readLine(reader); url != "" {
		cfg.Webhook.BaseURL = url
	}
	if cfg.Webhook.BaseURL != "" {
		secret, err := config.ReadPassword("   Webhook secret (hidden input, Enter to skip): ")
		if err == nil && secret != "" {
			cfg.Webhook.Secret = secret
			fmt.Println("   Secret will be referenced as ${CASABOT_WEBHOOK_SECRET}. Add it to .env.")
		}
	}

	// Step 5: inbound gateway.
	fmt.Println()
	fmt.Printf("5. Enable the inbound HTTP gateway on %s? (y/n) [n]: ", cfg.Gateway.Addr)
	if g := readLine(reader); strings.ToLower(g) == "y" {
		cfg.Gateway.Enabled = true
		key, err := config.ReadPassword("   Gateway API key (hidden input, Enter for open access): ")
		if err == nil && key != "" {
			cfg.Gateway.APIKey = key
			fmt.Println("   Key will be referenced as ${CASABOT_GATEWAY_KEY}. Add it to .env.")
		}
	}

	// Step 6: channels.
	fmt.Println()
	fmt.Print("6. Enable WhatsApp? (y/n) [y]: ")
	if w := readLine(reader); strings.ToLower(w) == "n" {
		cfg.WhatsApp.Enabled = false
	}
	fmt.Print("   Enable Discord? (y/n) [n]: ")
	if d := readLine(reader); strings.ToLower(d) == "y" {
		cfg.Discord.Enabled = true
		fmt.Println("   Set DISCORD_BOT_TOKEN in .env before running serve.")
	}

	// Confirm and save.
	target := "config.yaml"
	fmt.Println()
	fmt.Printf("Save to %s? (y/n) [y]: ", target)
	if confirm := readLine(reader); strings.ToLower(confirm) == "n" {
		fmt.Println("Setup cancelled.")
		return nil
	}

	if _, err := os.Stat(target); err == nil {
		fmt.Printf("File %s already exists. Overwrite? (y/n) [n]: ", target)
		if overwrite := readLine(reader); strings.ToLower(overwrite) != "y" {
			fmt.Println("Setup cancelled. Existing file kept.")
			return nil
		}
	}

	if err := config.Save(cfg, target); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Println("config.yaml created.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run: casabot serve")
	if cfg.WhatsApp.Enabled {
		fmt.Println("  2. Scan the QR code with your WhatsApp")
	}
	fmt.Println()

	return nil
}

// readLine reads a single line, trimming whitespace.
func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
