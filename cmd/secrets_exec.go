package cmd

import (
	"fmt"
	"os"

	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/ui"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	execFiles []string
	execWith  []string
)

func init() {
	execCmd.Flags().StringSliceVarP(&execFiles, "file", "f", nil, "env file, directory, or glob to load (repeatable)")
	execCmd.Flags().StringSliceVar(&execWith, "with", nil, "additional plain dotenv file to merge (repeatable)")
}

// resetExecCommandState resets the exec command's global state for testing.
func resetExecCommandState() {
	execFiles = nil
	execWith = nil
}

var execCmd = &cobra.Command{
	Use:   "exec -- CMD [ARGS...]",
	Short: "Runs a command with the decrypted environment",
	Long: `Decrypts the targeted env files in memory and runs CMD with those
values injected into its environment. Nothing is written to disk and the
plaintext exists only for the child's lifetime.

Precedence, lowest to highest: the parent environment, --with files,
decrypted values. The child's exit code is propagated.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting exec command")

		if err := configs.InitProjectSettings(); err != nil {
			return Logger.ErrorfAndReturn("failed to init project settings: %v", err)
		}

		creds, err := acquireCredentials("Password: ", envPassword)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}

		// No spinner here: the child owns the terminal.
		opts := workflows.ExecOptions{
			FilePatterns: execFiles,
			WithFiles:    execWith,
			Command:      args,
			Username:     creds.Username,
			Password:     creds.Password,
		}
		result, err := workflows.Exec(cmd.Context(), opts)
		if creds.shouldRetry(err) {
			Logger.Infof("Cached keychain password rejected, prompting")
			if perr := creds.reprompt("Password: "); perr != nil {
				return Logger.ErrorfAndReturn("Failed to read password: %v", perr)
			}
			opts.Password = creds.Password
			result, err = workflows.Exec(cmd.Context(), opts)
		}
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				fmt.Print(ui.EnsureNewline(msg))
				os.Exit(1)
			}
			return Logger.ErrorfAndReturn("Failed to run command: %v", err)
		}
		creds.cacheOnSuccess()

		if result.ExitCode != 0 {
			os.Exit(result.ExitCode)
		}
		return nil
	},
}
