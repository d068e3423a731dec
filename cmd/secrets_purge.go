package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/ui"
	"github.com/sealenv/sealenv/internal/utils"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var purgeForce bool

func init() {
	purgeCmd.Flags().BoolVar(&purgeForce, "force", false, "skip confirmation prompt")
}

// resetPurgeCommandState resets the purge command's global state for testing.
func resetPurgeCommandState() {
	purgeForce = false
}

// confirmPurge prompts the user to confirm removing all sealenv state.
// Returns true if the user confirms, false otherwise.
func confirmPurge(s *spinner.Spinner) bool {
	s.Stop()

	fmt.Printf("\n%s This will remove the .sealenv directory, including the keyring.\n", ui.Warning.Sprint("Warning:"))
	fmt.Println("  Encrypted values left in your env files will become unrecoverable.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Do you want to continue? [y/N]: ")
	response, err := reader.ReadString('\n')
	if err != nil {
		Logger.Errorf("Failed to read response: %v", err)
		s.Restart()
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))

	s.Restart()
	return response == "y" || response == "yes"
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Removes all sealenv state from the project",
	Long: `Deletes the .sealenv directory (config and keyring) and the
project's cached keychain passwords. Env files are left exactly as they
are, so decrypt anything you still need first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting purge command")
		spinner, cleanup := startSpinner("Purging sealenv state...", verbose)
		defer cleanup()

		if !purgeForce && utils.IsTerminal() {
			if !confirmPurge(spinner) {
				spinner.FinalMSG = color.YellowString("✗") + " Purge cancelled"
				return nil
			}
		}

		result, err := workflows.Purge(cmd.Context(), workflows.PurgeOptions{
			Username: configs.UserSealenvSettings.Username,
		})
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to purge project: %v", err)
		}

		finalMessage := color.GreenString("✓") + " Removed " + ui.Path.Sprint(result.RemovedPath)
		if result.KeychainCleared > 0 {
			finalMessage += "\n" + color.CyanString("→") +
				fmt.Sprintf(" Cleared %d cached keychain entries", result.KeychainCleared)
		}
		spinner.FinalMSG = finalMessage
		return nil
	},
}
