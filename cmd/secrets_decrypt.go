package cmd

import (
	"fmt"
	"sort"

	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/utils"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	decryptFiles  []string
	decryptKey    string
	decryptStdout bool
	decryptDryRun bool
)

func init() {
	decryptCmd.Flags().StringSliceVarP(&decryptFiles, "file", "f", nil, "env file, directory, or glob to decrypt (repeatable)")
	decryptCmd.Flags().StringVar(&decryptKey, "key", "", "decrypt only this KEY")
	decryptCmd.Flags().BoolVar(&decryptStdout, "stdout", false, "print decrypted contents instead of rewriting files")
	decryptCmd.Flags().BoolVar(&decryptDryRun, "dry-run", false, "report what would change without writing")
}

// resetDecryptCommandState resets the decrypt command's global state for testing.
func resetDecryptCommandState() {
	decryptFiles = nil
	decryptKey = ""
	decryptStdout = false
	decryptDryRun = false
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypts ENC[...] values back to plaintext",
	Long: `Replaces each ENC[...] token in the targeted env files with its
plaintext value. Every targeted value must decrypt before a single file is
written; a wrong password or a corrupt token aborts with zero changes.

With --stdout the decrypted contents are printed and the files on disk are
left untouched. With --key only that one key is decrypted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt command")

		if err := configs.InitProjectSettings(); err != nil {
			return Logger.ErrorfAndReturn("failed to init project settings: %v", err)
		}

		creds, err := acquireCredentials("Password: ", envPassword)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}

		spinner, cleanup := startSpinner("Decrypting environment values...", verbose)
		defer cleanup()

		opts := workflows.DecryptOptions{
			FilePatterns: decryptFiles,
			Key:          decryptKey,
			Stdout:       decryptStdout,
			DryRun:       decryptDryRun,
			Username:     creds.Username,
			Password:     creds.Password,
		}
		result, err := workflows.Decrypt(cmd.Context(), opts)
		if creds.shouldRetry(err) {
			Logger.Infof("Cached keychain password rejected, prompting")
			spinner.Stop()
			if perr := creds.reprompt("Password: "); perr != nil {
				return Logger.ErrorfAndReturn("Failed to read password: %v", perr)
			}
			spinner.Restart()
			opts.Password = creds.Password
			result, err = workflows.Decrypt(cmd.Context(), opts)
		}
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to decrypt values: %v", err)
		}
		creds.cacheOnSuccess()

		if decryptStdout {
			spinner.Stop()
			paths := make([]string, 0, len(result.Contents))
			for path := range result.Contents {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			for _, path := range paths {
				if len(paths) > 1 {
					fmt.Println("# " + path)
				}
				fmt.Print(result.Contents[path])
			}
			return nil
		}

		if result.Count == 0 {
			finalMessage := color.GreenString("✓") + " Nothing to decrypt\n" +
				color.CyanString("→") + " No encrypted values found in the targeted files"
			spinner.FinalMSG = finalMessage
			return nil
		}

		verb := "decrypted"
		if result.DryRun {
			verb = "would be decrypted"
		}
		finalMessage := color.GreenString("✓") + " " + countNoun(result.Count, "value") + " " + verb +
			" across " + countNoun(len(result.Files), "file") + "\n" +
			"The following files were updated: " + utils.FormatPaths(result.Files) +
			color.YellowString("Warning:") + " these files now contain plaintext secrets, do not commit them"
		spinner.FinalMSG = finalMessage
		return nil
	},
}
