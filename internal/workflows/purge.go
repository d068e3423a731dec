package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/sealenv/sealenv/internal/audit"
	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/envelope"
	"github.com/sealenv/sealenv/internal/keychain"
)

// PurgeOptions configures the purge workflow.
type PurgeOptions struct {
	// Username identifies the caller for the audit trail.
	Username string
}

// PurgeResult contains the outcome of a purge operation.
type PurgeResult struct {
	// RemovedPath is the .sealenv directory that was deleted.
	RemovedPath string

	// KeychainCleared is the number of cached passwords removed.
	KeychainCleared int
}

// Purge removes all sealenv state from the project: the .sealenv
// directory (config, keyref, keyring) and any cached passwords for the
// project's users. Env files are left exactly as they are, including
// still-encrypted values, which become unreadable once the keyring and
// keyref are gone. The cmd layer confirms with the user before calling
// this.
func Purge(ctx context.Context, opts PurgeOptions) (*PurgeResult, error) {
	projectConfig, err := loadProject()
	if err != nil {
		return nil, err
	}

	sealenvPath := configs.ProjectSealenvSettings.SealenvPath
	result := &PurgeResult{RemovedPath: sealenvPath}

	// Drop cached passwords first, while the keyring still lists the
	// users they belong to.
	if projectConfig.Project.Mode == configs.ModeTeam {
		manager := envelope.NewManager(configs.ProjectSealenvSettings.KeyringPath)
		if users, err := manager.ListUsers(); err == nil {
			for _, user := range users {
				if keychain.Delete(projectConfig.Project.UUID, user.Username) == nil {
					result.KeychainCleared++
				}
			}
		}
	} else {
		if keychain.Delete(projectConfig.Project.UUID, opts.Username) == nil {
			result.KeychainCleared++
		}
	}

	// The audit log lives in the user data directory, so this entry
	// survives the removal below.
	entry := audit.New(audit.ActionPurge)
	entry.User = opts.Username
	audit.Log(entry)

	if err := os.RemoveAll(sealenvPath); err != nil {
		return nil, fmt.Errorf("failed to remove %s: %w", sealenvPath, err)
	}

	return result, nil
}
