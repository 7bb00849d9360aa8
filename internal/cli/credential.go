// Package cli provides the command-line interface for the trading application.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"straddle-trader/internal/security"
	"straddle-trader/internal/store"
)

// addCredentialCommands adds exchange credential management commands.
func addCredentialCommands(rootCmd *cobra.Command, app *App) {
	credCmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage stored exchange credentials",
		Long: `Manage exchange API credentials. Key material is encrypted with the
passphrase in ` + vaultPassphraseEnv + ` before it touches disk and is
decrypted only for the duration of a single execution.`,
	}
	credCmd.AddCommand(newCredentialAddCmd(app))
	credCmd.AddCommand(newCredentialListCmd(app))
	credCmd.AddCommand(newCredentialRevokeCmd(app))
	rootCmd.AddCommand(credCmd)
}

func newCredentialAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <label>",
		Short: "Store an exchange API credential",
		Long: `Store a Delta Exchange API key pair under a label. The key and
secret are read from standard input, never from command arguments, so
they stay out of shell history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}
			if os.Getenv(vaultPassphraseEnv) == "" {
				output.Error("%s must be set to store credentials", vaultPassphraseEnv)
				return fmt.Errorf("vault passphrase not set")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			label := args[0]
			validator := security.NewInputValidator()
			if err := validator.ValidateLabel(label); err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			apiKey, err := promptLine(output, reader, "API key: ")
			if err != nil {
				return err
			}
			if err := validator.ValidateAPIKey(apiKey); err != nil {
				return err
			}
			apiSecret, err := promptLine(output, reader, "API secret: ")
			if err != nil {
				return err
			}
			if err := validator.ValidateAPISecret(apiSecret); err != nil {
				return err
			}

			cipher := vaultCipher()
			keyEnc, err := cipher.Encrypt(apiKey)
			if err != nil {
				return fmt.Errorf("encrypting api key: %w", err)
			}
			secretEnc, err := cipher.Encrypt(apiSecret)
			if err != nil {
				return fmt.Errorf("encrypting api secret: %w", err)
			}

			cred := &store.Credential{
				ID:           uuid.NewString(),
				Label:        label,
				APIKeyEnc:    keyEnc,
				APISecretEnc: secretEnc,
				Active:       true,
				CreatedAt:    time.Now(),
			}
			if err := app.Store.SaveCredential(ctx, cred); err != nil {
				return err
			}
			output.Success("Stored credential %q (%s)", label, security.MaskCredential(apiKey))
			return nil
		},
	}
}

func promptLine(output *Output, reader *bufio.Reader, prompt string) (string, error) {
	output.Printf("%s", prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newCredentialListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			creds, err := app.Store.ListCredentials(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				// Encrypted blobs stay out of the listing.
				type row struct {
					ID        string    `json:"id"`
					Label     string    `json:"label"`
					Active    bool      `json:"active"`
					CreatedAt time.Time `json:"created_at"`
				}
				rows := make([]row, 0, len(creds))
				for _, c := range creds {
					rows = append(rows, row{ID: c.ID, Label: c.Label, Active: c.Active, CreatedAt: c.CreatedAt})
				}
				return output.JSON(rows)
			}
			if len(creds) == 0 {
				output.Dim("No credentials stored")
				return nil
			}

			output.Bold("%-20s %-8s %-20s %s", "LABEL", "ACTIVE", "CREATED", "ID")
			for _, c := range creds {
				output.Printf("%-20s %-8t %-20s %s\n",
					c.Label, c.Active, c.CreatedAt.Format("2006-01-02 15:04"), c.ID)
			}
			return nil
		},
	}
}

func newCredentialRevokeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <label-or-id>",
		Short: "Revoke a stored credential",
		Long: `Mark a stored credential as revoked. Revoked credentials remain in
the store for audit but can no longer be resolved for execution.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := requireStore(app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			cred, err := app.Store.GetCredential(ctx, args[0])
			if err != nil {
				return err
			}
			if err := app.Store.RevokeCredential(ctx, cred.ID); err != nil {
				return err
			}
			output.Success("Revoked credential %q", cred.Label)
			return nil
		},
	}
}
