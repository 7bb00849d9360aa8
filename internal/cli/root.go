// Package cli provides the command-line interface for the trading application.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"straddle-trader/internal/config"
	"straddle-trader/internal/credentials"
	"straddle-trader/internal/exchange"
	"straddle-trader/internal/logging"
	"straddle-trader/internal/models"
	"straddle-trader/internal/security"
	"straddle-trader/internal/store"
	"straddle-trader/internal/trading"
)

// Version information
const (
	Version = "0.1.0"
)

// vaultPassphraseEnv names the environment variable holding the
// passphrase that protects stored credentials.
const vaultPassphraseEnv = "STRADDLE_VAULT_PASSPHRASE"

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   store.Store
	Service *trading.Service
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dbPath := filepath.Join(config.DefaultConfigDir(), "straddle.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	if app.Store != nil {
		resolver := credentials.NewStoreResolver(app.Store, vaultCipher())
		app.Service = trading.NewService(cfg, app.Store, resolver, newExchangeFactory(cfg, logger), logger)
	}

	rootCmd := &cobra.Command{
		Use:   "straddle-trader",
		Short: "ATM straddle execution CLI for Delta Exchange",
		Long: `straddle-trader executes at-the-money option straddles on Delta
Exchange India crypto derivatives.

It selects the strike nearest to spot, submits both legs together with
idempotent order ids, drives each leg to a terminal state, and unwinds
the surviving leg if only one side fills. Every execution is recorded
for later review and reconciliation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/straddle-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addTradeCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)
	addPresetCommands(rootCmd, app)
	addCredentialCommands(rootCmd, app)
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newInitCmd(app))

	return rootCmd
}

// vaultCipher builds the credential cipher from the vault passphrase.
// An empty passphrase still yields a cipher; credential resolution
// will fail on decrypt rather than here, so read-only commands work
// without the passphrase set.
func vaultCipher() *security.Cipher {
	return security.NewCipher(os.Getenv(vaultPassphraseEnv))
}

// newExchangeFactory returns the per-execution exchange constructor
// for the configured trading mode. Paper mode wraps an unauthenticated
// market data client so simulated fills track real prices.
func newExchangeFactory(cfg *config.Config, logger zerolog.Logger) trading.ExchangeFactory {
	deltaCfg := exchange.DeltaConfig{
		BaseURL: cfg.Exchange.BaseURL,
		Timeout: cfg.Exchange.Timeout,
	}
	if cfg.IsPaperMode() {
		return func(keys models.APIKeys) exchange.Exchange {
			return exchange.NewPaperExchange(exchange.PaperConfig{
				DataSource: exchange.NewDeltaClient(deltaCfg, models.APIKeys{}, logger),
			})
		}
	}
	feed := exchange.NewMarkFeed(cfg.Exchange.SocketURL, []string{"BTCUSD", "ETHUSD"}, logger)
	return func(keys models.APIKeys) exchange.Exchange {
		client := exchange.NewDeltaClient(deltaCfg, keys, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := feed.Connect(ctx); err != nil {
			logger.Debug().Err(err).Msg("Mark feed unavailable, using REST tickers")
		} else {
			client.AttachFeed(feed)
		}
		return client
	}
}

// requireStore fails commands that need persistence when the store is
// unavailable.
func requireStore(app *App) error {
	if app.Store == nil {
		return fmt.Errorf("data store unavailable, check permissions on %s", config.DefaultConfigDir())
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "straddle-trader %s\n", Version)
		},
	}
}

func newInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			configDir, _ := cmd.Flags().GetString("config")
			path, err := config.WriteTemplate(configDir)
			if err != nil {
				return err
			}
			output.Success("Wrote default configuration to %s", path)
			return nil
		},
	}
}
