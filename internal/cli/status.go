// Package cli provides the command-line interface for the trading application.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"straddle-trader/internal/exchange"
	"straddle-trader/internal/models"
)

// componentHealth is the per-component row of the status report.
type componentHealth struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Message string        `json:"message"`
	Latency time.Duration `json:"latency"`
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connectivity to the exchange and local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			checks := []componentHealth{
				checkStore(ctx, app),
				checkExchange(ctx, app),
			}

			if output.IsJSON() {
				return output.JSON(checks)
			}

			output.Bold("Mode: %s", app.Config.Trading.Mode)
			for _, c := range checks {
				if c.Healthy {
					output.Success("  %-10s ok (%s) %s", c.Name, c.Latency.Round(time.Millisecond), c.Message)
				} else {
					output.Error("  %-10s FAIL: %s", c.Name, c.Message)
				}
			}
			return nil
		},
	}
}

func checkStore(ctx context.Context, app *App) componentHealth {
	health := componentHealth{Name: "store"}
	if app.Store == nil {
		health.Message = "not initialized"
		return health
	}
	start := time.Now()
	_, err := app.Store.ListCredentials(ctx)
	health.Latency = time.Since(start)
	if err != nil {
		health.Message = err.Error()
		return health
	}
	health.Healthy = true
	return health
}

// checkExchange probes the public market data surface; no credentials
// are needed for a connectivity check.
func checkExchange(ctx context.Context, app *App) componentHealth {
	health := componentHealth{Name: "exchange"}
	client := exchange.NewDeltaClient(exchange.DeltaConfig{
		BaseURL: app.Config.Exchange.BaseURL,
		Timeout: app.Config.Exchange.Timeout,
	}, models.APIKeys{}, app.Logger)

	start := time.Now()
	spot, err := client.GetSpotPrice(ctx, app.Config.Trading.DefaultUnderlying)
	health.Latency = time.Since(start)
	if err != nil {
		health.Message = err.Error()
		return health
	}
	health.Healthy = true
	health.Message = app.Config.Trading.DefaultUnderlying + " spot " + FormatUSD(spot)
	return health
}
