package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sealenv/sealenv/internal/configs"
)

func TestInitCommand_Standalone(t *testing.T) {
	originalWd, _ := os.Getwd()
	originalUserSettings := configs.UserSealenvSettings
	tempDir := t.TempDir()
	tempUserDir := t.TempDir()
	setupTestEnvironment(t, tempDir, tempUserDir, originalWd, originalUserSettings)
	ResetGlobalState()

	t.Setenv("SEALENV_PASSWORD", "hunter2-but-longer")

	output, err := captureOutput(func() error {
		cmd := createTestCLI("init", nil, nil, false, false)
		return cmd.Execute()
	})
	if err != nil {
		t.Fatalf("init failed: %v\noutput: %s", err, output)
	}

	verifyProjectStructure(t, tempDir)

	if !strings.Contains(output, "standalone") {
		t.Errorf("Expected standalone mode in output, got: %s", output)
	}

	// The keyref must be present so values can be encrypted later.
	if err := configs.InitProjectSettings(); err != nil {
		t.Fatalf("InitProjectSettings failed: %v", err)
	}
	projectConfig, err := configs.LoadProjectConfig()
	if err != nil {
		t.Fatalf("LoadProjectConfig failed: %v", err)
	}
	if projectConfig.Project.Mode != configs.ModeStandalone {
		t.Errorf("Expected standalone mode, got: %s", projectConfig.Project.Mode)
	}
	if projectConfig.Keyref == nil {
		t.Fatal("Expected a keyref in the project config")
	}
	if projectConfig.Keyref.Iterations <= 0 {
		t.Errorf("Expected positive iteration count, got: %d", projectConfig.Keyref.Iterations)
	}
}

func TestInitCommand_Team(t *testing.T) {
	originalWd, _ := os.Getwd()
	originalUserSettings := configs.UserSealenvSettings
	tempDir := t.TempDir()
	tempUserDir := t.TempDir()
	setupTestEnvironment(t, tempDir, tempUserDir, originalWd, originalUserSettings)
	ResetGlobalState()

	t.Setenv("SEALENV_PASSWORD", "first-admin-password")

	output, err := captureOutput(func() error {
		cmd := createTestCLIWithArgs([]string{"init", "--team"}, nil, nil, false, false)
		return cmd.Execute()
	})
	if err != nil {
		t.Fatalf("init --team failed: %v\noutput: %s", err, output)
	}

	verifyProjectStructure(t, tempDir)

	keyringPath := filepath.Join(tempDir, ".sealenv", "keyring.json")
	if _, err := os.Stat(keyringPath); os.IsNotExist(err) {
		t.Error("Expected keyring.json to be created for a team project")
	}
	if !strings.Contains(output, "team") {
		t.Errorf("Expected team mode in output, got: %s", output)
	}
}

func TestInitCommand_AlreadyInitialized(t *testing.T) {
	originalWd, _ := os.Getwd()
	originalUserSettings := configs.UserSealenvSettings
	tempDir := t.TempDir()
	tempUserDir := t.TempDir()
	setupTestEnvironment(t, tempDir, tempUserDir, originalWd, originalUserSettings)
	ResetGlobalState()

	initializeProject(t, "hunter2-but-longer")

	output, err := captureOutput(func() error {
		cmd := createTestCLI("init", nil, nil, false, false)
		return cmd.Execute()
	})
	if err != nil {
		t.Fatalf("Expected friendly message, not an error: %v", err)
	}
	if !strings.Contains(output, "already been initialized") {
		t.Errorf("Expected already-initialized message, got: %s", output)
	}
}
