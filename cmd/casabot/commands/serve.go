package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"casabot/pkg/casabot/channels"
	"casabot/pkg/casabot/channels/discord"
	"casabot/pkg/casabot/channels/whatsapp"
	"casabot/pkg/casabot/gateway"
	"casabot/pkg/casabot/scheduler"
)

// newServeCmd creates the `casabot serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon with messaging channels",
		Long: `Start casabot as a daemon, connecting the enabled messaging
channels and processing messages until interrupted.

Examples:
  casabot serve
  casabot serve --config ./config.yaml`,
		RunE: runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := buildLogger(cmd, cfg)

	bot, cleanup, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := channels.NewManager(bot.router.RouteMessage, logger)

	if cfg.WhatsApp.Enabled {
		wa := whatsapp.New(cfg.WhatsApp.Config, logger)
		if err := manager.Register(wa); err != nil {
			logger.Error("failed to register WhatsApp", "error", err)
		}
	}
	if cfg.Discord.Enabled && cfg.Discord.Token != "" {
		dc := discord.New(cfg.Discord.Config, logger)
		if err := manager.Register(dc); err != nil {
			logger.Error("failed to register Discord", "error", err)
		}
	}

	if err := manager.Start(ctx); err != nil {
		logger.Warn("started with channel warnings", "error", err)
	}

	sched := scheduler.New(bot.subs, bot.weather, manager, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start digest scheduler", "error", err)
	}

	var gw *gateway.Server
	if cfg.Gateway.Enabled {
		gw = gateway.New(gateway.Config{
			Addr:        cfg.Gateway.Addr,
			APIKey:      cfg.Gateway.APIKey,
			ReadTimeout: cfg.Gateway.ReadTimeout,
		}, bot.registry, bot.executor, logger)
		if err := gw.Start(ctx); err != nil {
			logger.Error("failed to start gateway", "error", err)
		} else {
			logger.Info("gateway running", "address", cfg.Gateway.Addr)
		}
	}

	logger.Info("casabot running. Press Ctrl+C to stop.",
		"actions", len(bot.registry.List()),
		"commands", len(bot.commands.List()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	done := make(chan struct{})
	go func() {
		sched.Stop()
		if gw != nil {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			_ = gw.Stop(shutdownCtx)
			cancelShutdown()
		}
		manager.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}
