package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"casabot/pkg/casabot/actions"
	chatcmd "casabot/pkg/casabot/commands"
	"casabot/pkg/casabot/config"
	"casabot/pkg/casabot/dispatch"
	"casabot/pkg/casabot/homeactions"
	"casabot/pkg/casabot/llm"
	"casabot/pkg/casabot/router"
	"casabot/pkg/casabot/scheduler"
	"casabot/pkg/casabot/weather"
)

// app bundles the wired components shared by serve and chat.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *actions.Registry
	commands *chatcmd.Registry
	subs     *scheduler.Store
	weather  *weather.Client
	model    *llm.Gateway
	audit    *dispatch.AuditLog
	executor *dispatch.Executor
	router   *router.Router
}

// resolveConfig loads the config from --config or standard locations,
// falling back to defaults when no file exists.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path != "" {
		return config.Load(path)
	}
	if found := config.FindConfigFile(); found != "" {
		return config.Load(found)
	}
	// No file is fine. Env overrides still apply.
	return config.Parse(nil)
}

// buildLogger configures slog from the config and --verbose flag.
func buildLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// quietLogger keeps interactive commands free of log noise.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// buildApp wires the full pipeline from config. The returned cleanup
// closes resources that hold file handles.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, func(), error) {
	config.ResolveAPIKey(cfg, logger)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data dir: %w", err)
	}

	registry := actions.NewRegistry(logger)
	homeactions.Register(registry)
	if cfg.ActionCatalog != "" {
		if err := homeactions.LoadCatalog(cfg.ActionCatalog, registry); err != nil {
			return nil, nil, fmt.Errorf("loading action catalog: %w", err)
		}
	}
	extractor := actions.NewExtractor(registry)

	wc := weather.NewClient(logger)

	subs, err := scheduler.OpenStore(filepath.Join(cfg.DataDir, "subscriptions.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening subscription store: %w", err)
	}

	cmdReg := chatcmd.NewRegistry(logger)
	chatcmd.RegisterBuiltins(cmdReg, wc, subs)
	cmdReg.RegisterActions(registry)

	model, err := llm.NewGateway(cfg.LLM, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating model gateway: %w", err)
	}

	audit, err := dispatch.OpenAuditLog(filepath.Join(cfg.DataDir, "audit.db"), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening audit log: %w", err)
	}

	webhook := dispatch.NewWebhookClient(cfg.Webhook, logger)
	executor := dispatch.NewExecutor(registry, cmdReg, webhook, audit, logger)
	rt := router.New(registry, extractor, model, executor, cmdReg, cfg.Router, logger)

	cleanup := func() {
		audit.Close()
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		commands: cmdReg,
		subs:     subs,
		weather:  wc,
		model:    model,
		audit:    audit,
		executor: executor,
		router:   rt,
	}, cleanup, nil
}
