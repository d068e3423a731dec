// Package keychain caches project passwords in the operating system's
// credential store. Caching is opt-in through the user config; a cached
// password that stops authenticating is overwritten on the next successful
// unlock, so a rotation naturally refreshes the cache.
package keychain

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// service is the keychain service name shared by all sealenv entries.
const service = "sealenv"

// ErrNotFound indicates no cached password exists for the account.
var ErrNotFound = errors.New("no cached password")

// account builds the keychain account name for one user of one project.
// Scoping by project UUID keeps identically-named users of different
// projects apart.
func account(projectUUID, username string) string {
	return projectUUID + "/" + username
}

// Get returns the cached password for a project user.
func Get(projectUUID, username string) (string, error) {
	secret, err := keyring.Get(service, account(projectUUID, username))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read keychain: %w", err)
	}
	return secret, nil
}

// Set stores or replaces the cached password for a project user.
func Set(projectUUID, username, password string) error {
	if err := keyring.Set(service, account(projectUUID, username), password); err != nil {
		return fmt.Errorf("failed to write keychain: %w", err)
	}
	return nil
}

// Delete removes the cached password for a project user. Deleting an
// absent entry is not an error.
func Delete(projectUUID, username string) error {
	err := keyring.Delete(service, account(projectUUID, username))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keychain entry: %w", err)
	}
	return nil
}
