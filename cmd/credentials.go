package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sealenv/sealenv/internal/configs"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/keychain"
	"github.com/sealenv/sealenv/internal/utils"
)

// Environment variables for non-interactive password entry. Passwords are
// never accepted as command-line arguments.
const (
	envPassword    = "SEALENV_PASSWORD"
	envOldPassword = "SEALENV_OLD_PASSWORD"
	envNewPassword = "SEALENV_NEW_PASSWORD"
)

var noKeychain bool

// keychainEnabled reports whether the OS keychain should be consulted for
// this invocation: the user config's use_keychain setting must be on and
// --no-keychain must not have been given.
func keychainEnabled() bool {
	if noKeychain {
		return false
	}
	userConfig, err := configs.LoadUserConfig()
	if err != nil {
		Logger.Debugf("Could not load user config for keychain setting: %v", err)
		return false
	}
	return userConfig.User.UseKeychain
}

// resolvePassword obtains the caller's password, in order of preference:
// the environment variable, the OS keychain (when enabled and the project
// is known), and finally a masked terminal prompt. fromKeychain is true
// when the keychain supplied the value, so the caller can retry with a
// fresh prompt if the cached password no longer authenticates.
func resolvePassword(prompt, envVar, projectUUID, username string) (password string, fromKeychain bool, err error) {
	if v := os.Getenv(envVar); v != "" {
		Logger.Debugf("Password supplied via %s", envVar)
		return v, false, nil
	}

	if projectUUID != "" && keychainEnabled() {
		cached, err := keychain.Get(projectUUID, username)
		if err == nil {
			Logger.Debugf("Password found in OS keychain")
			return cached, true, nil
		}
		Logger.Debugf("No keychain entry: %v", err)
	}

	return promptPassword(prompt)
}

// promptPassword reads a password with echo disabled, from stdin when it
// is a terminal, otherwise from /dev/tty so prompting still works while
// stdin carries piped data (exec, confirmation answers).
func promptPassword(prompt string) (string, bool, error) {
	var raw []byte
	var err error
	switch {
	case utils.IsTerminal():
		raw, err = utils.ReadPassphrase(prompt)
	case utils.IsTTYAvailable():
		raw, err = utils.ReadPassphraseFromTTY(prompt)
	default:
		return "", false, fmt.Errorf("cannot prompt for password without a terminal; set %s", envPassword)
	}
	if err != nil {
		return "", false, fmt.Errorf("reading password: %w", err)
	}
	return string(raw), false, nil
}

// promptNewPassword reads a new password twice and requires both entries to
// match. Used wherever a password is being set rather than checked.
func promptNewPassword(prompt string) (string, error) {
	if v := os.Getenv(envNewPassword); v != "" {
		Logger.Debugf("New password supplied via %s", envNewPassword)
		return v, nil
	}

	first, _, err := promptPassword(prompt)
	if err != nil {
		return "", err
	}
	second, _, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	return first, nil
}

// credentials carries the resolved username and password for one command
// invocation, plus enough state to retry when a keychain-cached password
// turns out to be stale.
type credentials struct {
	ProjectUUID  string
	Username     string
	Password     string
	fromKeychain bool
}

// acquireCredentials resolves the current user and their password ahead of
// an operation. Call after configs.InitProjectSettings so the project UUID
// is available for keychain lookup; an uninitialized project simply skips
// the keychain.
func acquireCredentials(prompt, envVar string) (*credentials, error) {
	c := &credentials{
		Username: configs.UserSealenvSettings.Username,
	}
	if configs.ProjectSealenvSettings.ProjectPath != "" {
		if projectConfig, err := configs.LoadProjectConfig(); err == nil {
			c.ProjectUUID = projectConfig.Project.UUID
		}
	}

	password, fromKeychain, err := resolvePassword(prompt, envVar, c.ProjectUUID, c.Username)
	if err != nil {
		return nil, err
	}
	c.Password = password
	c.fromKeychain = fromKeychain
	return c, nil
}

// shouldRetry reports whether err means a cached keychain password failed
// to authenticate, so the user should be prompted directly.
func (c *credentials) shouldRetry(err error) bool {
	if !c.fromKeychain {
		return false
	}
	return errors.Is(err, serrors.ErrInvalidPassword) || errors.Is(err, serrors.ErrAuthenticationFailed)
}

// reprompt drops the stale cached password and asks the user directly.
func (c *credentials) reprompt(prompt string) error {
	forgetCachedPassword(c.ProjectUUID, c.Username)
	password, _, err := promptPassword(prompt)
	if err != nil {
		return err
	}
	c.Password = password
	c.fromKeychain = false
	return nil
}

// cacheOnSuccess stores the password that just authenticated.
func (c *credentials) cacheOnSuccess() {
	cachePassword(c.ProjectUUID, c.Username, c.Password)
}

// cachePassword stores a password that just authenticated successfully.
// Best-effort: a keychain failure is logged and ignored.
func cachePassword(projectUUID, username, password string) {
	if projectUUID == "" || !keychainEnabled() {
		return
	}
	if err := keychain.Set(projectUUID, username, password); err != nil {
		Logger.Warnf("Failed to cache password in OS keychain: %v", err)
	}
}

// forgetCachedPassword drops a cached password that failed to authenticate.
func forgetCachedPassword(projectUUID, username string) {
	if projectUUID == "" {
		return
	}
	if err := keychain.Delete(projectUUID, username); err != nil {
		Logger.Debugf("Failed to remove keychain entry: %v", err)
	}
}
