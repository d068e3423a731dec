package configs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sealenv/sealenv/internal/utils"
)

type UserSettings struct {
	UserConfigsPath string
	UserDataPath    string
	Username        string
}

type ProjectSettings struct {
	ProjectUUID string
	ProjectName string
	ProjectPath string
	SealenvPath string
	KeyringPath string
}

var (
	UserSealenvSettings    *UserSettings
	ProjectSealenvSettings *ProjectSettings
)

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")

	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	username, err := utils.GetUsername()
	if err != nil {
		log.Fatalf("error getting username: %s", err)
	}

	// This is independent of what repo you are in, so it is ok to init here
	UserSealenvSettings = &UserSettings{
		UserConfigsPath: filepath.Join(configDir, "sealenv"),
		UserDataPath:    filepath.Join(dataDir, "sealenv"),
		Username:        username,
	}
	ProjectSealenvSettings = &ProjectSettings{
		ProjectUUID: "",
		ProjectName: "",
		ProjectPath: "",
		SealenvPath: "",
		KeyringPath: "",
	}
}

func InitProjectSettings() error {
	projectName, err := utils.GetProjectName()
	if err != nil {
		return fmt.Errorf("error getting project name: %w", err)
	}

	projectPath, err := utils.FindProjectRoot()
	if err != nil {
		return fmt.Errorf("error getting project root: %w", err)
	}

	ProjectSealenvSettings = &ProjectSettings{
		ProjectName: projectName,
		ProjectPath: projectPath,
		SealenvPath: filepath.Join(projectPath, ".sealenv"),
		KeyringPath: filepath.Join(projectPath, ".sealenv", "keyring.json"),
	}
	if projectPath == "" {
		ProjectSealenvSettings.SealenvPath = ""
		ProjectSealenvSettings.KeyringPath = ""
	}

	return nil
}
