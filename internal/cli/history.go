// Package cli provides the command-line interface for the trading application.
package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"straddle-trader/internal/models"
	"straddle-trader/internal/store"
)

// addHistoryCommands adds execution history and reconciliation commands.
func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newShowCmd(app))
	rootCmd.AddCommand(newReconcileCmd(app))
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded straddle executions",
		Example: `  straddle-trader history
  straddle-trader history --underlying BTC --limit 20
  straddle-trader history --status ONE_LEG_FILLED
  straddle-trader history --review`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			underlying, _ := cmd.Flags().GetString("underlying")
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			review, _ := cmd.Flags().GetBool("review")

			filter := store.OutcomeFilter{
				Underlying: strings.ToUpper(underlying),
				Status:     models.OutcomeStatus(strings.ToUpper(status)),
				Limit:      limit,
			}
			if review {
				t := true
				filter.NeedsReview = &t
			}

			outcomes, err := app.Store.GetOutcomes(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(outcomes)
			}
			if len(outcomes) == 0 {
				output.Dim("No executions recorded")
				return nil
			}

			output.Bold("%-36s %-19s %-5s %-10s %-15s %s", "ID", "TIME", "UND", "STRIKE", "STATUS", "FLAGS")
			for _, o := range outcomes {
				flags := ""
				if o.NeedsReview {
					flags += "review "
				}
				if o.IsPaper {
					flags += "paper"
				}
				status := output.ColoredString(statusColor(o.Status), string(o.Status))
				output.Printf("%-36s %-19s %-5s %-10s %-15s %s\n",
					o.ID, o.CreatedAt.Format("2006-01-02 15:04:05"), o.Underlying,
					FormatStrike(o.Strike), status, flags)
			}
			return nil
		},
	}

	cmd.Flags().String("underlying", "", "filter by underlying")
	cmd.Flags().String("status", "", "filter by outcome status")
	cmd.Flags().Int("limit", 50, "maximum rows")
	cmd.Flags().Bool("review", false, "only outcomes flagged for manual review")

	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <outcome-id>",
		Short: "Show one recorded execution in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			outcome, err := app.Store.GetOutcome(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(outcome)
			}
			renderOutcome(output, outcome)
			return nil
		},
	}
}

func newReconcileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <outcome-id>",
		Short: "Compare a recorded execution against live exchange positions",
		Long: `Compare the fills recorded for an execution against the positions
the exchange currently reports. Drift is reported, never corrected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			credential, _ := cmd.Flags().GetString("credential")
			report, err := app.Service.Reconcile(ctx, args[0], models.CredentialHandle(credential))
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			output.Bold("Reconciliation for %s at %s", report.OutcomeID, report.CheckedAt.Format(time.RFC3339))
			for _, e := range report.Entries {
				line := e.Symbol + "  recorded " + FormatQuantity(e.RecordedQty) + "  exchange " + FormatQuantity(e.ExchangeQty)
				if e.Drift {
					output.Error("  %s  DRIFT", line)
				} else {
					output.Success("  %s  ok", line)
				}
			}
			if report.Drift {
				output.Warning("Positions have drifted from the recorded outcome")
			}
			return nil
		},
	}

	cmd.Flags().String("credential", "", "credential label or id")
	return cmd
}
