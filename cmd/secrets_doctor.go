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

var doctorFiles []string

func init() {
	doctorCmd.Flags().StringSliceVarP(&doctorFiles, "file", "f", nil, "env file, directory, or glob to check (repeatable)")
}

// resetDoctorCommandState resets the doctor command's global state for testing.
func resetDoctorCommandState() {
	doctorFiles = nil
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verifies every encrypted value decrypts",
	Long: `Attempts to decrypt every encrypted value in the targeted files and
reports the results per file. Values that fail authentication (wrong
password) are reported separately from malformed tokens (corruption that no
password will fix). Read-only: nothing on disk changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting doctor command")

		if err := configs.InitProjectSettings(); err != nil {
			return Logger.ErrorfAndReturn("failed to init project settings: %v", err)
		}

		creds, err := acquireCredentials("Password: ", envPassword)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}

		spinner, cleanup := startSpinner("Checking encrypted values...", verbose)
		defer cleanup()

		opts := workflows.DoctorOptions{
			FilePatterns: doctorFiles,
			Username:     creds.Username,
			Password:     creds.Password,
		}
		result, err := workflows.Doctor(cmd.Context(), opts)
		if creds.shouldRetry(err) {
			Logger.Infof("Cached keychain password rejected, prompting")
			spinner.Stop()
			if perr := creds.reprompt("Password: "); perr != nil {
				return Logger.ErrorfAndReturn("Failed to read password: %v", perr)
			}
			spinner.Restart()
			opts.Password = creds.Password
			result, err = workflows.Doctor(cmd.Context(), opts)
		}
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to check values: %v", err)
		}
		creds.cacheOnSuccess()

		var b strings.Builder
		if result.Healthy {
			b.WriteString(color.GreenString("✓") + " All encrypted values verified\n")
		} else {
			b.WriteString(color.RedString("✗") + " Some values did not verify\n")
		}

		for _, report := range result.Reports {
			b.WriteString("    - " + ui.Path.Sprint(report.Path) + ": " +
				fmt.Sprintf("%d encrypted, %d plaintext", report.Encrypted, report.Plaintext))
			if report.Legacy > 0 {
				b.WriteString(ui.Warning.Sprintf(", %d legacy", report.Legacy))
			}
			if len(report.Failed) > 0 {
				b.WriteString(ui.Error.Sprintf(", auth failed: %s", strings.Join(report.Failed, ", ")))
			}
			if len(report.Malformed) > 0 {
				b.WriteString(ui.Error.Sprintf(", malformed: %s", strings.Join(report.Malformed, ", ")))
			}
			b.WriteString("\n")
		}

		if !result.Healthy {
			b.WriteString(color.CyanString("→") + " Auth failures mean a wrong password; " +
				"malformed values need restoring from version control or a backup\n")
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}
