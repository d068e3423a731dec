package cmd

import (
	"os"

	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/ui"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var registerAdmin bool

func init() {
	registerCmd.Flags().BoolVar(&registerAdmin, "admin", false, "grant the new user the admin role")
}

// resetRegisterCommandState resets the register command's global state for testing.
func resetRegisterCommandState() {
	registerAdmin = false
}

var registerCmd = &cobra.Command{
	Use:   "register USERNAME",
	Short: "Wraps the project key for a new team member",
	Long: `Adds a user to the team keyring. Your admin password unlocks the
shared project key, which is then wrapped under the new user's password with
a fresh salt. With --admin the new user can manage the team themselves.

The new user's password is read from SEALENV_NEW_PASSWORD or prompted; hand
it to them out of band and have them rotate it on first use.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting register command")
		newUsername := args[0]

		if err := configs.InitProjectSettings(); err != nil {
			return Logger.ErrorfAndReturn("failed to init project settings: %v", err)
		}

		creds, err := acquireCredentials("Your admin password: ", envPassword)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to read password: %v", err)
		}

		newPassword := os.Getenv(envNewPassword)
		if newPassword == "" {
			newPassword, err = promptNewPassword("Password for " + newUsername + ": ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to read password: %v", err)
			}
		}

		spinner, cleanup := startSpinner("Registering "+newUsername+"...", verbose)
		defer cleanup()

		opts := workflows.RegisterOptions{
			AdminUsername: creds.Username,
			AdminPassword: creds.Password,
			NewUsername:   newUsername,
			NewPassword:   newPassword,
			Admin:         registerAdmin,
		}
		result, err := workflows.Register(cmd.Context(), opts)
		if creds.shouldRetry(err) {
			Logger.Infof("Cached keychain password rejected, prompting")
			spinner.Stop()
			if perr := creds.reprompt("Your admin password: "); perr != nil {
				return Logger.ErrorfAndReturn("Failed to read password: %v", perr)
			}
			spinner.Restart()
			opts.AdminPassword = creds.Password
			result, err = workflows.Register(cmd.Context(), opts)
		}
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to register user: %v", err)
		}
		creds.cacheOnSuccess()

		finalMessage := color.GreenString("✓") + " Registered " + ui.Path.Sprint(result.Username) +
			" as " + result.Role + " (" + countNoun(result.UserCount, "user") + " total)\n" +
			color.CyanString("→") + " Share their password out of band and have them run " +
			color.YellowString("sealenv secrets rotate")
		spinner.FinalMSG = finalMessage
		return nil
	},
}
