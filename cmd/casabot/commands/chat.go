package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// newChatCmd creates the `casabot chat` command for local conversations.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the assistant from the terminal",
		Long: `Send a single message or enter an interactive session. The full
pipeline runs locally, so webhook actions and chat commands work the
same way they do on a messaging channel.

Examples:
  casabot chat "turn off the office lights"
  casabot chat  # interactive mode`,
		Args: cobra.ArbitraryArgs,
		RunE: runChat,
	}
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	bot, cleanup, err := buildApp(cfg, quietLogger())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()

	if len(args) > 0 {
		replies := bot.router.RouteMessage(ctx, "cli", "terminal", strings.Join(args, " "))
		for _, reply := range replies {
			fmt.Println(reply)
		}
		return nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Interactive session. Type !help for commands, Ctrl+D to exit.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Println("bye")
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Println("bye")
			return nil
		}

		for _, reply := range bot.router.RouteMessage(ctx, "cli", "terminal", line) {
			fmt.Printf("casa> %s\n", reply)
		}
	}
}
