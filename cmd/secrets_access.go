package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/sealenv/sealenv/internal/envelope"
	"github.com/sealenv/sealenv/internal/ui"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Lists team members and their roles",
	Long: `Shows every user in the team keyring with their role, registration
time, and last unlock. Reads only public metadata, so no password is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting access command")
		spinner, cleanup := startSpinner("Reading keyring...", verbose)
		defer cleanup()

		result, err := workflows.Access(cmd.Context(), workflows.AccessOptions{})
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to read keyring: %v", err)
		}

		var b strings.Builder
		b.WriteString(color.GreenString("✓") + " " + ui.Path.Sprint(result.ProjectName) +
			": " + countNoun(len(result.Users), "user") + "\n")
		for _, user := range result.Users {
			b.WriteString("    - " + formatUserEntry(user) + "\n")
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}

func formatUserEntry(user envelope.UserEntry) string {
	role := user.Role
	if role == envelope.RoleAdmin {
		role = ui.Warning.Sprint(role)
	}
	line := fmt.Sprintf("%s (%s), registered %s", user.Username, role,
		user.CreatedAt.Format("2006-01-02"))
	if user.LastAccess != nil {
		line += ", last access " + formatRelative(*user.LastAccess)
	}
	return line
}

// formatRelative renders a timestamp as a rough age, "3h ago" style.
func formatRelative(t time.Time) string {
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return t.Format("2006-01-02")
	}
}
