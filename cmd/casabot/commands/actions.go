package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newActionsCmd creates the `casabot actions` command that lists the
// registered action catalog.
func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List registered automation actions",
		Long: `Print the action catalog: every webhook action and chat command the
assistant can dispatch, with parameter schemas.

Examples:
  casabot actions
  casabot actions --config ./config.yaml`,
		RunE: runActions,
	}
}

func runActions(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	bot, cleanup, err := buildApp(cfg, quietLogger())
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("Webhook actions:")
	for _, def := range bot.registry.Webhooks() {
		fmt.Printf("  %s", def.ID)
		if alias := def.Alias(); alias != def.ID {
			fmt.Printf(" (alias: %s)", alias)
		}
		fmt.Printf("\n    %s\n", def.Description)
		for _, name := range def.ParamOrder {
			spec := def.Params[name]
			var attrs []string
			if spec.Required {
				attrs = append(attrs, "required")
			}
			if len(spec.AllowedValues) > 0 {
				attrs = append(attrs, "one of: "+strings.Join(spec.AllowedValues, ", "))
			}
			if spec.Default != "" {
				attrs = append(attrs, "default: "+spec.Default)
			}
			suffix := ""
			if len(attrs) > 0 {
				suffix = " [" + strings.Join(attrs, "; ") + "]"
			}
			fmt.Printf("    - %s%s\n", name, suffix)
		}
	}

	fmt.Println()
	fmt.Println("Chat commands:")
	for _, c := range bot.commands.List() {
		fmt.Printf("  !%-10s %s\n", c.Name, c.Description)
	}

	return nil
}
