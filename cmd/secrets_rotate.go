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

var (
	rotateFiles []string
	rotateForce bool
)

func init() {
	rotateCmd.Flags().StringSliceVarP(&rotateFiles, "file", "f", nil, "env file, directory, or glob to migrate (repeatable)")
	rotateCmd.Flags().BoolVar(&rotateForce, "force", false, "skip confirmation prompt")
}

// resetRotateCommandState resets the rotate command's global state for testing.
func resetRotateCommandState() {
	rotateFiles = nil
	rotateForce = false
}

// confirmRotate prompts the user to confirm the password rotation.
// Returns true if the user confirms, false otherwise.
func confirmRotate(s *spinner.Spinner) bool {
	s.Stop()

	fmt.Printf("\n%s This will re-encrypt every sealed value under a new password.\n", ui.Warning.Sprint("Warning:"))
	fmt.Println("  Your old password will no longer work for this project.")
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

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Changes your password, re-encrypting where needed",
	Long: `Changes the password protecting this project.

Standalone mode runs the full migration protocol:
  1. Every encrypted value in every targeted file is decrypted and verified
     under the old password
  2. Everything is re-encrypted under the new password with a fresh salt
  3. The files are rewritten, and the keyref is committed last

A wrong old password, a corrupt value, or a file modified mid-rotation each
abort before a single byte is written. Legacy-format tokens are upgraded to
the current format along the way.

Team mode re-wraps only your personal copy of the project key. The shared
key, the value files, and your teammates are untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting rotate command")

		if err := configs.InitProjectSettings(); err != nil {
			return Logger.ErrorfAndReturn("failed to init project settings: %v", err)
		}

		oldPassword := os.Getenv(envOldPassword)
		if oldPassword == "" {
			var err error
			oldPassword, _, err = promptPassword("Current password: ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to read password: %v", err)
			}
		}
		newPassword, err := promptNewPassword("New password: ")
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}

		spinner, cleanup := startSpinner("Rotating password...", verbose)
		defer cleanup()

		if !rotateForce && utils.IsTerminal() {
			if !confirmRotate(spinner) {
				spinner.FinalMSG = color.YellowString("✗") + " Rotation cancelled"
				return nil
			}
		}

		result, err := workflows.Rotate(cmd.Context(), workflows.RotateOptions{
			FilePatterns: rotateFiles,
			Username:     configs.UserSealenvSettings.Username,
			OldPassword:  oldPassword,
			NewPassword:  newPassword,
		})
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to rotate password: %v", err)
		}

		// The old cached password is stale either way.
		forgetCachedPassword(configs.ProjectSealenvSettings.ProjectUUID, configs.UserSealenvSettings.Username)

		var finalMessage string
		if result.Mode == configs.ModeTeam {
			finalMessage = color.GreenString("✓") + " Password changed\n" +
				color.CyanString("→") + " Your copy of the project key was re-wrapped; teammates are unaffected"
		} else if result.ReencryptedCount == 0 {
			finalMessage = color.GreenString("✓") + " Password changed\n" +
				color.CyanString("→") + " No encrypted values yet, only the key parameters were updated"
		} else {
			finalMessage = color.GreenString("✓") + " Password changed: " +
				countNoun(result.ReencryptedCount, "value") + " re-encrypted across " +
				countNoun(len(result.RotatedFiles), "file")
		}
		spinner.FinalMSG = finalMessage
		return nil
	},
}
