package cmd

import (
	logger "github.com/sealenv/sealenv/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	SecretsCmd = &cobra.Command{
		Use:   "secrets",
		Short: "Manage encrypted values in env files",
		Long:  `Provides encryption, decryption, rotation, team access control, and auditing of secrets stored inside env files.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing secrets command with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	SecretsCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	SecretsCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	SecretsCmd.PersistentFlags().BoolVar(&noKeychain, "no-keychain", false, "skip the OS keychain for this invocation")

	SecretsCmd.AddCommand(initCmd)
	SecretsCmd.AddCommand(encryptCmd)
	SecretsCmd.AddCommand(decryptCmd)
	SecretsCmd.AddCommand(rotateCmd)
	SecretsCmd.AddCommand(registerCmd)
	SecretsCmd.AddCommand(revokeCmd)
	SecretsCmd.AddCommand(accessCmd)
	SecretsCmd.AddCommand(statusCmd)
	SecretsCmd.AddCommand(doctorCmd)
	SecretsCmd.AddCommand(execCmd)
	SecretsCmd.AddCommand(logCmd)
	SecretsCmd.AddCommand(purgeCmd)
}

// Helper functions for testing

// GetSecretsCmd returns the SecretsCmd for testing.
func GetSecretsCmd() *cobra.Command {
	return SecretsCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	noKeychain = false
	resetInitCommandState()
	resetEncryptCommandState()
	resetDecryptCommandState()
	resetRotateCommandState()
	resetRegisterCommandState()
	resetStatusCommandState()
	resetDoctorCommandState()
	resetExecCommandState()
	resetLogCommandState()
	resetPurgeCommandState()

	// Cobra keeps flag state between Execute calls in one process. The
	// values are restored by the reset functions above; the Changed
	// markers have to be cleared by hand.
	for _, c := range SecretsCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			f.Changed = false
		})
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
