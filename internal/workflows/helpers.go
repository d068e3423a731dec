package workflows

import (
	"errors"
	"fmt"

	"github.com/sealenv/sealenv/internal/audit"
	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/envelope"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/rotation"
	"github.com/sealenv/sealenv/internal/secrets"
	"github.com/sealenv/sealenv/internal/secure"
)

// loadProject initializes project settings and loads the project config,
// failing when the working tree has no initialized project.
func loadProject() (*configs.ProjectConfig, error) {
	if err := configs.InitProjectSettings(); err != nil {
		return nil, fmt.Errorf("initializing project settings: %w", err)
	}

	if configs.ProjectSealenvSettings.ProjectPath == "" {
		return nil, serrors.ErrProjectNotInitialized
	}

	projectConfig, err := configs.LoadProjectConfig()
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	if !projectConfig.IsInitialized() {
		return nil, serrors.ErrProjectNotInitialized
	}

	return projectConfig, nil
}

// resolveTargetFiles turns user patterns into the operation's env file
// list, defaulting to every env file under the project root.
func resolveTargetFiles(patterns []string) ([]string, error) {
	projectPath := configs.ProjectSealenvSettings.ProjectPath

	if len(patterns) > 0 {
		return secrets.ResolveEnvFiles(patterns, projectPath)
	}

	files, err := secrets.FindEnvFiles(projectPath)
	if err != nil {
		return nil, fmt.Errorf("searching for env files: %w", err)
	}
	return files, nil
}

// valueKeys supplies the decryption/encryption keys for a project's values
// and owns their destruction. Standalone projects derive per token
// version from the password and the keyref's stored salt; team projects
// use the unlocked project key for every version.
type valueKeys struct {
	passwordKeys *rotation.PasswordKeys
	projectKey   []byte
}

// ForVersion returns the key for a token of the given version.
func (v *valueKeys) ForVersion(version int) ([]byte, error) {
	if v.projectKey != nil {
		return v.projectKey, nil
	}
	return v.passwordKeys.ForVersion(version)
}

// Current returns the key new encryptions seal under.
func (v *valueKeys) Current() ([]byte, error) {
	return v.ForVersion(secrets.TokenVersionCurrent)
}

// Close wipes every key the helper holds.
func (v *valueKeys) Close() {
	if v.passwordKeys != nil {
		v.passwordKeys.Wipe()
	}
	if v.projectKey != nil {
		secure.Wipe(v.projectKey)
	}
}

// unlockValueKeys authenticates against the project and returns its value
// keys. In team mode the password is proven immediately by unwrapping the
// user's project-key entry; in standalone mode derivation alone cannot
// prove anything, so callers that touch existing ciphertexts must verify
// against one (see verifyAgainstExisting).
func unlockValueKeys(projectConfig *configs.ProjectConfig, username, password string) (*valueKeys, error) {
	switch projectConfig.Project.Mode {
	case configs.ModeTeam:
		manager := envelope.NewManager(configs.ProjectSealenvSettings.KeyringPath)
		projectKey, err := manager.Unlock(envelope.Credentials{Username: username, Password: password})
		if err != nil {
			return nil, err
		}

		entry := audit.New(audit.ActionUnlock)
		audit.Log(entry)

		return &valueKeys{projectKey: projectKey}, nil

	case configs.ModeStandalone:
		if projectConfig.Keyref == nil {
			return nil, fmt.Errorf("%w: project has no keyref", serrors.ErrProjectNotInitialized)
		}
		salt, err := projectConfig.Keyref.SaltBytes()
		if err != nil {
			return nil, err
		}
		return &valueKeys{passwordKeys: rotation.NewPasswordKeys(password, salt)}, nil

	default:
		return nil, fmt.Errorf("%w: unknown mode %q", serrors.ErrInvalidProjectConfig, projectConfig.Project.Mode)
	}
}

// verifyAgainstExisting proves a standalone password by decrypting the
// first encrypted value found across files. With no encrypted values
// there is nothing to check against and the password is accepted as
// given. Team projects are already verified by the envelope unlock.
func verifyAgainstExisting(keys *valueKeys, files []*fileTarget) error {
	if keys.projectKey != nil {
		return nil
	}

	for _, tgt := range files {
		for _, entry := range tgt.env.EncryptedEntries() {
			token, err := secrets.ParseToken(entry.Value)
			if err != nil {
				return fmt.Errorf("%w: %s in %s", serrors.ErrMalformedToken, entry.Key, tgt.path)
			}
			key, err := keys.ForVersion(token.Version)
			if err != nil {
				return err
			}
			plaintext, err := secrets.Decrypt(token, key)
			if err != nil {
				if errors.Is(err, serrors.ErrAuthenticationFailed) {
					return fmt.Errorf("%w: %s in %s did not decrypt", serrors.ErrInvalidPassword, entry.Key, tgt.path)
				}
				return err
			}
			secure.Wipe(plaintext)
			return nil
		}
	}
	return nil
}

// fileTarget pairs a parsed env file with its path.
type fileTarget struct {
	path string
	env  *secrets.EnvFile
}

// parseTargets reads and parses every file, rejecting structurally broken
// tokens up front: a malformed value is corruption and no operation
// should run past it.
func parseTargets(files []string) ([]*fileTarget, error) {
	targets := make([]*fileTarget, 0, len(files))
	for _, path := range files {
		raw, err := readFile(path)
		if err != nil {
			return nil, err
		}
		env := secrets.ParseEnvFile(raw)
		if malformed := env.MalformedEntries(); len(malformed) > 0 {
			return nil, fmt.Errorf("%w: %s in %s",
				malformed[0].TokenErr, malformed[0].Key, path)
		}
		targets = append(targets, &fileTarget{path: path, env: env})
	}
	return targets, nil
}
