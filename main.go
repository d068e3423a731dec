package main

import (
	"fmt"
	"os"

	"github.com/sealenv/sealenv/cmd"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sealenv",
	Short: "Sealenv - encrypted secrets inside your env files.",
	Long: `Sealenv encrypts the values of KEY=VALUE env files in place, so the
files stay diffable and committable while the secrets inside them are sealed.

Features:
  - Encrypt and decrypt individual values, not whole files
  - Standalone mode: one password protects the project
  - Team mode: a shared project key wrapped per user, with roles and revocation
  - Password rotation with full verification before a single byte is written

Usage:
  sealenv <command> [flags]

Available Commands:
  secrets    Manage encrypted values in env files

Run 'sealenv help <command>' for more details on a specific command.
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to Sealenv! Run 'sealenv --help' to see available commands.")
	},
}

func main() {
	rootCmd.AddCommand(cmd.SecretsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
