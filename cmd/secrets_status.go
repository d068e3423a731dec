package cmd

import (
	"fmt"
	"strings"

	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/ui"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusFiles []string

func init() {
	statusCmd.Flags().StringSliceVarP(&statusFiles, "file", "f", nil, "env file, directory, or glob to report on (repeatable)")
}

// resetStatusCommandState resets the status command's global state for testing.
func resetStatusCommandState() {
	statusFiles = nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the project overview",
	Long: `Reports the project mode, its env files, and per-file counts of
encrypted, plaintext, legacy-format, and malformed values. Recognition is
purely structural, so no password is needed and nothing is decrypted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")
		spinner, cleanup := startSpinner("Inspecting project...", verbose)
		defer cleanup()

		result, err := workflows.Status(cmd.Context(), workflows.StatusOptions{
			FilePatterns: statusFiles,
		})
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to inspect project: %v", err)
		}

		var b strings.Builder
		b.WriteString(color.GreenString("✓") + " " + ui.Path.Sprint(result.ProjectName) +
			" (" + result.Mode + " mode)\n")
		if result.Mode == configs.ModeTeam {
			b.WriteString("  Keyring: " + countNoun(result.UserCount, "user") + "\n")
		}

		if len(result.Files) == 0 {
			b.WriteString("  No env files found\n")
		}
		for _, file := range result.Files {
			b.WriteString("    - " + ui.Path.Sprint(file.Path) + ": " +
				fmt.Sprintf("%d encrypted, %d plaintext", file.Encrypted, file.Plaintext))
			if file.Legacy > 0 {
				b.WriteString(ui.Warning.Sprintf(", %d legacy", file.Legacy))
			}
			if len(file.Malformed) > 0 {
				b.WriteString(ui.Error.Sprintf(", %d malformed (%s)",
					len(file.Malformed), strings.Join(file.Malformed, ", ")))
			}
			b.WriteString("\n")
		}

		if hasLegacy(result.Files) {
			b.WriteString(color.CyanString("→") + " Run " + color.YellowString("sealenv secrets rotate") +
				" to upgrade legacy values to the current format\n")
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}

func hasLegacy(files []workflows.FileStatus) bool {
	for _, f := range files {
		if f.Legacy > 0 {
			return true
		}
	}
	return false
}
