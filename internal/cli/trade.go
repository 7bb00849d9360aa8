// Package cli provides the command-line interface for the trading application.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"straddle-trader/internal/models"
	"straddle-trader/internal/security"
)

// addTradeCommands adds straddle execution commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStraddleCmd(app))
}

func newStraddleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "straddle [underlying]",
		Short: "Execute an ATM straddle",
		Long: `Execute an at-the-money straddle on the nearest daily expiry.

The strike nearest to the current spot price is selected (the lower
strike on an exact tie). Both legs are submitted together; if only one
leg fills the other is unwound with a reduce-only market order.

Either name a saved preset with --preset, or give the parameters
inline. Omitting the underlying uses the configured default.`,
		Example: `  straddle-trader straddle BTC --credential main --lots 1 --side LONG
  straddle-trader straddle --preset btc-daily --credential main
  straddle-trader straddle ETH --credential main --lots 2 --side SHORT --type LIMIT --offset 0.02`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			credential, _ := cmd.Flags().GetString("credential")
			if credential == "" && !app.Config.IsPaperMode() {
				output.Error("--credential is required for live trading")
				return fmt.Errorf("credential required")
			}

			preset, err := resolvePreset(ctx, cmd, app, args)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			output.Info("Executing %s %s straddle, %d lots (%s mode)",
				strings.ToUpper(string(preset.Side)), preset.Underlying, preset.LotSize, app.Config.Trading.Mode)

			outcome, err := app.Service.ExecuteStraddle(ctx, preset, models.CredentialHandle(credential))
			if err != nil {
				output.Error("Execution failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(outcome)
			}
			renderOutcome(output, outcome)
			return nil
		},
	}

	cmd.Flags().String("preset", "", "saved preset name or id")
	cmd.Flags().String("credential", "", "credential label or id")
	cmd.Flags().Int("lots", 1, "contracts per leg")
	cmd.Flags().String("side", "LONG", "LONG or SHORT")
	cmd.Flags().String("type", "MARKET", "MARKET or LIMIT")
	cmd.Flags().Float64("offset", 0.01, "limit price tolerance around premium")

	return cmd
}

// resolvePreset loads the named preset or builds an ad-hoc one from
// the command flags.
func resolvePreset(ctx context.Context, cmd *cobra.Command, app *App, args []string) (*models.StrategyPreset, error) {
	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		return app.Store.GetPreset(ctx, name)
	}

	underlying := app.Config.Trading.DefaultUnderlying
	if len(args) > 0 {
		underlying = strings.ToUpper(args[0])
	}
	if err := security.NewInputValidator().ValidateUnderlying(underlying); err != nil {
		return nil, err
	}

	lots, _ := cmd.Flags().GetInt("lots")
	side, _ := cmd.Flags().GetString("side")
	orderType, _ := cmd.Flags().GetString("type")
	offset, _ := cmd.Flags().GetFloat64("offset")

	switch strings.ToUpper(side) {
	case string(models.StraddleLong), string(models.StraddleShort):
	default:
		return nil, fmt.Errorf("invalid side %q (LONG or SHORT)", side)
	}
	switch strings.ToUpper(orderType) {
	case string(models.OrderTypeMarket), string(models.OrderTypeLimit):
	default:
		return nil, fmt.Errorf("invalid order type %q (MARKET or LIMIT)", orderType)
	}

	return &models.StrategyPreset{
		ID:             uuid.NewString(),
		Name:           "ad-hoc",
		Underlying:     underlying,
		LotSize:        lots,
		Side:           models.StraddleSide(strings.ToUpper(side)),
		OrderType:      models.OrderType(strings.ToUpper(orderType)),
		LimitOffsetPct: offset,
		CreatedAt:      time.Now(),
	}, nil
}

// renderOutcome prints a finalized execution outcome.
func renderOutcome(output *Output, outcome *models.ExecutionOutcome) {
	output.Println()
	output.Bold("Straddle %s %s @ %s", outcome.Underlying, FormatStrike(outcome.Strike), FormatExpiry(outcome.Expiry))
	output.Dim("  outcome %s  correlation %s", outcome.ID, outcome.CorrelationID)
	output.Println()

	for _, leg := range outcome.Legs() {
		renderLeg(output, leg)
	}
	if outcome.UnwindOrderID != "" {
		output.Warning("  unwind order %s", outcome.UnwindOrderID)
	}

	output.Println()
	status := output.ColoredString(statusColor(outcome.Status), string(outcome.Status))
	output.Printf("Result: %s", status)
	if outcome.IsPaper {
		output.Printf("  %s", output.ColoredString(ColorDim, "[paper]"))
	}
	output.Println()
	if outcome.NeedsReview {
		output.Error("Manual review required: the surviving leg could not be unwound")
	}
}

func renderLeg(output *Output, leg models.LegResult) {
	line := fmt.Sprintf("  %-4s %-22s %s x%d  %s",
		leg.Order.OptionType, leg.Order.Symbol, leg.Order.Side, leg.Order.Quantity, leg.Status)
	if leg.Status.Filled() {
		line += fmt.Sprintf("  %d @ %s", leg.FilledQty, FormatUSD(leg.AvgPrice))
		output.Success("%s", line)
		return
	}
	if leg.Error != "" {
		line += "  (" + leg.Error + ")"
	}
	output.Error("%s", line)
}
