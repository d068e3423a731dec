package configs

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Project modes. Standalone projects are protected by a single password and
// carry a keyref; team projects wrap a shared project key per user in
// keyring.json.
const (
	ModeStandalone = "standalone"
	ModeTeam       = "team"
)

type UserConfig struct {
	User User `toml:"user"`
}

type User struct {
	Username    string `toml:"username"`
	UseKeychain bool   `toml:"use_keychain"`
}

type ProjectConfig struct {
	Project Project `toml:"project"`
	Keyref  *Keyref `toml:"keyref,omitempty"`
}

type Project struct {
	UUID      string    `toml:"project_uuid"`
	Name      string    `toml:"name"`
	Mode      string    `toml:"mode"`
	CreatedAt time.Time `toml:"created_at"`
}

// Keyref stores the active derivation parameters for standalone mode.
// The salt is not secret; the password and anything derived from it are
// never persisted.
type Keyref struct {
	Salt       string    `toml:"salt"`
	Iterations int       `toml:"iterations"`
	Version    int       `toml:"version"`
	UpdatedAt  time.Time `toml:"updated_at"`
}

// NewKeyref builds a keyref from a raw salt and derivation parameters.
func NewKeyref(salt []byte, iterations, version int) *Keyref {
	return &Keyref{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Iterations: iterations,
		Version:    version,
		UpdatedAt:  time.Now().UTC(),
	}
}

// SaltBytes decodes the stored salt.
func (k *Keyref) SaltBytes() ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(k.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode keyref salt: %w", err)
	}
	return salt, nil
}

// KDFVersion returns the token version the keyref derives for. Configs
// written before the version field existed are legacy version 1.
func (k *Keyref) KDFVersion() int {
	if k.Version == 0 {
		return 1
	}
	return k.Version
}

// IsInitialized reports whether this config belongs to a set-up project.
func (pc *ProjectConfig) IsInitialized() bool {
	return pc.Project.UUID != ""
}

// LoadUserConfig loads the user configuration from the config file.
func LoadUserConfig() (*UserConfig, error) {
	configPath := filepath.Join(UserSealenvSettings.UserConfigsPath, "config.toml")

	config := &UserConfig{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	return config, nil
}

// SaveUserConfig saves the user configuration to the config file.
func SaveUserConfig(config *UserConfig) error {
	configPath := filepath.Join(UserSealenvSettings.UserConfigsPath, "config.toml")

	if err := SaveTOML(configPath, config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}

	return nil
}

// EnsureUserConfig ensures the user configuration exists and has a username.
// The system username is the default identity for new registrations.
func EnsureUserConfig() (*UserConfig, error) {
	config, err := LoadUserConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if config.User.Username == "" {
		config.User.Username = UserSealenvSettings.Username
		if err := SaveUserConfig(config); err != nil {
			return nil, fmt.Errorf("failed to save user config: %w", err)
		}
	}

	return config, nil
}

// LoadProjectConfig loads the project configuration from the config file.
// Note: Caller should ensure InitProjectSettings is called before calling this function.
func LoadProjectConfig() (*ProjectConfig, error) {
	configPath := filepath.Join(ProjectSealenvSettings.ProjectPath, ".sealenv", "config.toml")

	config := &ProjectConfig{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}

	return config, nil
}

// SaveProjectConfig saves the project configuration to the config file.
// The write is atomic, so the keyref can never be half-updated.
// Note: Caller should ensure InitProjectSettings is called before calling this function.
func SaveProjectConfig(config *ProjectConfig) error {
	configPath := filepath.Join(ProjectSealenvSettings.ProjectPath, ".sealenv", "config.toml")

	if err := SaveTOML(configPath, config); err != nil {
		return fmt.Errorf("failed to save project config: %w", err)
	}

	return nil
}

// pendingKeyrefFile wraps a staged keyref for TOML serialization.
type pendingKeyrefFile struct {
	Keyref Keyref `toml:"keyref"`
}

func pendingKeyrefPath() string {
	return filepath.Join(ProjectSealenvSettings.ProjectPath, ".sealenv", "keyref-pending.toml")
}

// SavePendingKeyref durably stages a keyref before a rotation's file
// writes begin. If the rotation is interrupted mid-commit, the staged
// salt is the only way to re-derive the key for files already rewritten.
func SavePendingKeyref(keyref *Keyref) error {
	if err := SaveTOML(pendingKeyrefPath(), &pendingKeyrefFile{Keyref: *keyref}); err != nil {
		return fmt.Errorf("failed to stage pending keyref: %w", err)
	}
	return nil
}

// LoadPendingKeyref returns the staged keyref from an interrupted
// rotation, or nil when none exists.
func LoadPendingKeyref() (*Keyref, error) {
	path := pendingKeyrefPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	staged := &pendingKeyrefFile{}
	if err := LoadTOML(path, staged); err != nil {
		return nil, fmt.Errorf("failed to load pending keyref: %w", err)
	}
	return &staged.Keyref, nil
}

// ClearPendingKeyref removes the staged keyref after the active keyref
// has been promoted.
func ClearPendingKeyref() error {
	err := os.Remove(pendingKeyrefPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear pending keyref: %w", err)
	}
	return nil
}

// GenerateProjectUUID generates a new UUID for the project.
func GenerateProjectUUID() string {
	return uuid.New().String()
}
