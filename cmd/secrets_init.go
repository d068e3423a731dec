package cmd

import (
	"fmt"
	"os"

	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/ui"
	"github.com/sealenv/sealenv/internal/workflows"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	initTeam        bool
	initProjectName string
)

func init() {
	initCmd.Flags().BoolVar(&initTeam, "team", false, "create a team project with a per-user keyring")
	initCmd.Flags().StringVar(&initProjectName, "project-name", "", "project name (defaults to the directory name)")
}

// resetInitCommandState resets the init command's global state for testing.
func resetInitCommandState() {
	initTeam = false
	initProjectName = ""
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initializes sealenv in the current directory",
	Long: `Creates the .sealenv directory and the project configuration.

Standalone mode (the default) protects the project with a single password:
a keyref (salt, iteration count, KDF version) is stored in the config and
every value is encrypted under a key derived from your password.

Team mode (--team) generates a random project key and wraps it for you, the
first admin, in .sealenv/keyring.json. Teammates are added later with
'sealenv secrets register'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")

		password := os.Getenv(envPassword)
		if password == "" {
			var err error
			password, err = promptNewPassword("Choose a password: ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to read password: %v", err)
			}
		}

		spinner, cleanup := startSpinner("Initializing sealenv...", verbose)
		defer cleanup()

		result, err := workflows.Init(cmd.Context(), workflows.InitOptions{
			Team:        initTeam,
			ProjectName: initProjectName,
			Username:    configs.UserSealenvSettings.Username,
			Password:    password,
		})
		if err != nil {
			if msg := friendlyMessage(err); msg != "" {
				spinner.FinalMSG = msg
				return nil
			}
			return Logger.ErrorfAndReturn("Failed to initialize project: %v", err)
		}

		if !verbose && !debug {
			spinner.Stop()
			fmt.Println()
			banner := figure.NewColorFigure("sealenv", "alligator2", "green", true)
			banner.Print()
			fmt.Println()
		}

		modeNote := "standalone project protected by your password"
		if result.Mode == configs.ModeTeam {
			modeNote = "team project with you as the first admin"
		}

		finalMessage := color.GreenString("✓") + " Sealenv initialized: " + modeNote + "\n" +
			"  Project: " + ui.Path.Sprint(result.ProjectName) + " (" + result.ProjectUUID + ")\n" +
			color.CyanString("→") + " Run " + color.YellowString("sealenv secrets encrypt") + " to seal your existing .env files"
		spinner.FinalMSG = finalMessage
		return nil
	},
}
