package cmd

import (
	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/ui"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var revokeCmd = &cobra.Command{
	Use:   "revoke USERNAME",
	Short: "Removes a team member's access",
	Long: `Deletes a user's entry from the team keyring, so their password can
no longer unwrap the project key. The last admin cannot be revoked.

Revocation does not provide forward secrecy: a revoked user who kept a copy
of the keyring or the decrypted values still has what they copied. Rotate
the affected secrets themselves if that matters.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting revoke command")
		targetUsername := args[0]

		if err := configs.InitProjectSettings(); err != nil {
			return Logger.ErrorfAndReturn("failed to init project settings: %v", err)
		}

		creds, err := acquireCredentials("Your admin password: ", envPassword)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}

		spinner, cleanup := startSpinner("Revoking "+targetUsername+"...", verbose)
		defer cleanup()

		opts := workflows.RevokeOptions{
			AdminUsername: creds.Username,
			AdminPassword: creds.Password,
			Username:      targetUsername,
		}
		result, err := workflows.Revoke(cmd.Context(), opts)
		if creds.shouldRetry(err) {
			Logger.Infof("Cached keychain password rejected, prompting")
			spinner.Stop()
			if perr := creds.reprompt("Your admin password: "); perr != nil {
				return Logger.ErrorfAndReturn("Failed to read password: %v", perr)
			}
			spinner.Restart()
			opts.AdminPassword = creds.Password
			result, err = workflows.Revoke(cmd.Context(), opts)
		}
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to revoke user: %v", err)
		}
		creds.cacheOnSuccess()

		finalMessage := color.GreenString("✓") + " Revoked " + ui.Path.Sprint(result.Username) +
			" (" + countNoun(result.UserCount, "user") + " remaining)\n" +
			color.CyanString("→") + " If they may have copied secrets, rotate the affected values too"
		spinner.FinalMSG = finalMessage
		return nil
	},
}
