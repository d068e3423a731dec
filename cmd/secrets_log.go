package cmd

import (
	"fmt"
	"strings"

	"github.com/sealenv/sealenv/internal/ui"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	logLimit   int
	logAction  string
	logProject string
)

func init() {
	logCmd.Flags().IntVar(&logLimit, "limit", 20, "maximum number of entries to show")
	logCmd.Flags().StringVar(&logAction, "action", "", "show only entries for this action (encrypt, rotate, ...)")
	logCmd.Flags().StringVar(&logProject, "project", "", "show only entries for this project")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 20
	logAction = ""
	logProject = ""
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Shows the audit trail",
	Long: `Prints recent entries from the user-level audit log, newest last.
The log records who did what and when, never passwords or secret values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting log command")
		spinner, cleanup := startSpinner("Reading audit log...", verbose)
		defer cleanup()

		result, err := workflows.Log(cmd.Context(), workflows.LogOptions{
			Limit:   logLimit,
			Action:  logAction,
			Project: logProject,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read audit log: %v", err)
		}

		if len(result.Entries) == 0 {
			spinner.FinalMSG = color.GreenString("✓") + " No audit entries recorded yet"
			return nil
		}

		var b strings.Builder
		b.WriteString(color.GreenString("✓") +
			fmt.Sprintf(" Showing %d of %d entries\n", len(result.Entries), result.TotalEntries))
		for _, entry := range result.Entries {
			line := "    " + workflows.FormatTimestamp(entry.Timestamp) + "  " +
				ui.Code.Sprint(entry.Action) + "  " + entry.User
			if entry.Project != "" {
				line += "  " + ui.Path.Sprint(entry.Project)
			}
			if entry.TargetUser != "" {
				line += "  target=" + entry.TargetUser
			}
			if entry.Count > 0 {
				line += fmt.Sprintf("  count=%d", entry.Count)
			}
			b.WriteString(line + "\n")
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}
