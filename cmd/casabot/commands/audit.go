package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"casabot/pkg/casabot/dispatch"
)

// newAuditCmd creates the `casabot audit` command that prints recent
// dispatch records.
func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent dispatched actions",
		Long: `Print the most recent entries from the dispatch audit log, newest
first.

Examples:
  casabot audit
  casabot audit --limit 50`,
		RunE: runAudit,
	}
	cmd.Flags().IntP("limit", "n", 20, "number of entries to show")
	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	audit, err := dispatch.OpenAuditLog(filepath.Join(cfg.DataDir, "audit.db"), quietLogger())
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer audit.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := audit.Recent(limit)
	if err != nil {
		return fmt.Errorf("reading audit log: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No dispatched actions recorded yet.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %-8s %-20s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Outcome,
			e.ActionID,
			e.ParamsJSON,
		)
	}
	return nil
}
