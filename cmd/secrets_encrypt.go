package cmd

import (
	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/utils"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	encryptFiles  []string
	encryptKey    string
	encryptDryRun bool
)

func init() {
	encryptCmd.Flags().StringSliceVarP(&encryptFiles, "file", "f", nil, "env file, directory, or glob to encrypt (repeatable)")
	encryptCmd.Flags().StringVar(&encryptKey, "key", "", "encrypt only this KEY")
	encryptCmd.Flags().BoolVar(&encryptDryRun, "dry-run", false, "report what would change without writing")
}

// resetEncryptCommandState resets the encrypt command's global state for testing.
func resetEncryptCommandState() {
	encryptFiles = nil
	encryptKey = ""
	encryptDryRun = false
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypts plaintext values inside your env files",
	Long: `Replaces each plaintext VALUE in the targeted env files with an
ENC[...] token, in place. Comments, blank lines, ordering, and already
encrypted values are left untouched, so the files stay diffable.

With --key only that one key is encrypted. With --dry-run nothing is
written and the would-be changes are reported instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt command")

		if err := configs.InitProjectSettings(); err != nil {
			return Logger.ErrorfAndReturn("failed to init project settings: %v", err)
		}

		creds, err := acquireCredentials("Password: ", envPassword)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}

		spinner, cleanup := startSpinner("Encrypting environment values...", verbose)
		defer cleanup()

		opts := workflows.EncryptOptions{
			FilePatterns: encryptFiles,
			Key:          encryptKey,
			DryRun:       encryptDryRun,
			Username:     creds.Username,
			Password:     creds.Password,
		}
		result, err := workflows.Encrypt(cmd.Context(), opts)
		if creds.shouldRetry(err) {
			Logger.Infof("Cached keychain password rejected, prompting")
			spinner.Stop()
			if perr := creds.reprompt("Password: "); perr != nil {
				return Logger.ErrorfAndReturn("Failed to read password: %v", perr)
			}
			spinner.Restart()
			opts.Password = creds.Password
			result, err = workflows.Encrypt(cmd.Context(), opts)
		}
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to encrypt values: %v", err)
		}
		creds.cacheOnSuccess()

		if result.Count == 0 {
			finalMessage := color.GreenString("✓") + " Nothing to encrypt\n" +
				color.CyanString("→") + " Every value in the targeted files is already sealed"
			spinner.FinalMSG = finalMessage
			return nil
		}

		verb := "encrypted"
		if result.DryRun {
			verb = "would be encrypted"
		}
		finalMessage := color.GreenString("✓") + " " + countNoun(result.Count, "value") + " " + verb +
			" across " + countNoun(len(result.Files), "file") + "\n" +
			"The following files were updated: " + utils.FormatPaths(result.Files) +
			color.CyanString("→") + " You can now safely commit these files to version control"
		spinner.FinalMSG = finalMessage
		return nil
	},
}
