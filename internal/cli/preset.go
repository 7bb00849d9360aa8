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

// addPresetCommands adds strategy preset management commands.
func addPresetCommands(rootCmd *cobra.Command, app *App) {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved straddle presets",
	}
	presetCmd.AddCommand(newPresetAddCmd(app))
	presetCmd.AddCommand(newPresetListCmd(app))
	presetCmd.AddCommand(newPresetDeleteCmd(app))
	rootCmd.AddCommand(presetCmd)
}

func newPresetAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <underlying>",
		Short: "Save a straddle preset",
		Example: `  straddle-trader preset add btc-daily BTC --lots 1 --side LONG
  straddle-trader preset add eth-short ETH --lots 2 --side SHORT --type LIMIT --offset 0.02 --max-lots 10`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			name := args[0]
			underlying := strings.ToUpper(args[1])

			validator := security.NewInputValidator()
			if err := validator.ValidateLabel(name); err != nil {
				return err
			}
			if err := validator.ValidateUnderlying(underlying); err != nil {
				return err
			}

			lots, _ := cmd.Flags().GetInt("lots")
			if err := validator.ValidateLotSize(lots); err != nil {
				return err
			}
			side, _ := cmd.Flags().GetString("side")
			orderType, _ := cmd.Flags().GetString("type")
			offset, _ := cmd.Flags().GetFloat64("offset")
			maxLots, _ := cmd.Flags().GetInt("max-lots")

			switch strings.ToUpper(side) {
			case string(models.StraddleLong), string(models.StraddleShort):
			default:
				return fmt.Errorf("invalid side %q (LONG or SHORT)", side)
			}

			now := time.Now()
			preset := &models.StrategyPreset{
				ID:             uuid.NewString(),
				Name:           name,
				Underlying:     underlying,
				LotSize:        lots,
				Side:           models.StraddleSide(strings.ToUpper(side)),
				OrderType:      models.OrderType(strings.ToUpper(orderType)),
				LimitOffsetPct: offset,
				MaxLotSize:     maxLots,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := app.Store.SavePreset(ctx, preset); err != nil {
				return err
			}
			output.Success("Saved preset %q (%s)", name, preset.ID)
			return nil
		},
	}

	cmd.Flags().Int("lots", 1, "contracts per leg")
	cmd.Flags().String("side", "LONG", "LONG or SHORT")
	cmd.Flags().String("type", "MARKET", "MARKET or LIMIT")
	cmd.Flags().Float64("offset", 0.01, "limit price tolerance around premium")
	cmd.Flags().Int("max-lots", 0, "per-preset lot cap, 0 disables")

	return cmd
}

func newPresetListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			presets, err := app.Store.ListPresets(ctx, "")
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(presets)
			}
			if len(presets) == 0 {
				output.Dim("No presets saved")
				return nil
			}

			output.Bold("%-20s %-5s %-6s %-6s %-7s %s", "NAME", "UND", "SIDE", "TYPE", "LOTS", "ID")
			for _, p := range presets {
				output.Printf("%-20s %-5s %-6s %-6s %-7d %s\n",
					p.Name, p.Underlying, p.Side, p.OrderType, p.LotSize, p.ID)
			}
			return nil
		},
	}
}

func newPresetDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name-or-id>",
		Short: "Delete a saved preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			preset, err := app.Store.GetPreset(ctx, args[0])
			if err != nil {
				return err
			}
			if err := app.Store.DeletePreset(ctx, preset.ID); err != nil {
				return err
			}
			output.Success("Deleted preset %q", preset.Name)
			return nil
		},
	}
}
