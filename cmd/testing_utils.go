// Package cmd contains testing utilities shared between integration tests.
// This file provides common functions for setting up test environments,
// capturing output, and verifying expected project structures.
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/sealenv/sealenv/internal/configs"
	logger "github.com/sealenv/sealenv/internal/logging"
	"github.com/spf13/cobra"
)

// setupTestEnvironment sets up the test environment with temporary directories.
func setupTestEnvironment(t *testing.T, tempDir, tempUserDir, originalWd string, originalUserSettings *configs.UserSettings) {
	// Change to temp directory
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	// Cleanup function to restore original state
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		configs.UserSealenvSettings = originalUserSettings
		configs.ProjectSealenvSettings = &configs.ProjectSettings{}
	})

	// Override user settings to use temp directory
	configs.UserSealenvSettings = &configs.UserSettings{
		UserConfigsPath: filepath.Join(tempUserDir, "config"),
		UserDataPath:    filepath.Join(tempUserDir, "data"),
		Username:        "testuser",
	}
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	outputChan := make(chan string, 2)

	// Start goroutines to read from pipes
	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	// Collect output
	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// initializeProject initializes a standalone sealenv project in the current
// directory using the real init command with a known password.
func initializeProject(t *testing.T, password string) {
	t.Setenv("SEALENV_PASSWORD", password)
	_, err := captureOutput(func() error {
		cmd := createTestCLI("init", nil, nil, false, false)
		return cmd.Execute()
	})
	if err != nil {
		t.Fatalf("Failed to initialize project: %v", err)
	}
}

// createTestCLI creates a complete CLI instance for testing with the specified command and flags.
func createTestCLI(subcommand string, stdout, stderr io.Writer, verboseFlag, debugFlag bool) *cobra.Command {
	return createTestCLIWithArgs([]string{subcommand}, stdout, stderr, verboseFlag, debugFlag)
}

// createTestCLIWithArgs is createTestCLI for subcommands that take arguments
// or flags of their own.
func createTestCLIWithArgs(args []string, stdout, stderr io.Writer, verboseFlag, debugFlag bool) *cobra.Command {
	// Set global flags for the actual command (needed for the real command implementations)
	verbose = verboseFlag
	debug = debugFlag

	// Initialize the logger with the test flags
	Logger = logger.Logger{
		Verbose: verbose,
		Debug:   debug,
	}

	// Create a fresh root command for this test
	rootCmd := &cobra.Command{
		Use:   "sealenv",
		Short: "Sealenv - encrypted secrets inside your env files.",
	}

	// Use the actual SecretsCmd but reset its state
	rootCmd.AddCommand(SecretsCmd)

	subcommands := []*cobra.Command{
		initCmd, encryptCmd, decryptCmd, rotateCmd, registerCmd, revokeCmd,
		accessCmd, statusCmd, doctorCmd, execCmd, logCmd, purgeCmd,
	}

	// Set output streams
	if stdout != nil {
		rootCmd.SetOut(stdout)
		SecretsCmd.SetOut(stdout)
		for _, c := range subcommands {
			c.SetOut(stdout)
		}
	}
	if stderr != nil {
		rootCmd.SetErr(stderr)
		SecretsCmd.SetErr(stderr)
		for _, c := range subcommands {
			c.SetErr(stderr)
		}
	}

	// Set args to run the specified subcommand
	rootCmd.SetArgs(append([]string{"secrets"}, args...))

	// Set the flags on the secrets command
	if err := SecretsCmd.PersistentFlags().Set("verbose", fmt.Sprintf("%t", verboseFlag)); err != nil {
		log.Fatalf("Failed to set verbose flag for testing: %s", err)
	}
	if err := SecretsCmd.PersistentFlags().Set("debug", fmt.Sprintf("%t", debugFlag)); err != nil {
		log.Fatalf("Failed to set debug flag for testing: %s", err)
	}

	return rootCmd
}

// verifyProjectStructure verifies that the expected project structure was created.
func verifyProjectStructure(t *testing.T, tempDir string) {
	// Check .sealenv directory exists
	sealenvDir := filepath.Join(tempDir, ".sealenv")
	if _, err := os.Stat(sealenvDir); os.IsNotExist(err) {
		t.Errorf(".sealenv directory was not created")
	}

	// Check project config exists
	configPath := filepath.Join(sealenvDir, "config.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Errorf(".sealenv/config.toml was not created")
	}
}
