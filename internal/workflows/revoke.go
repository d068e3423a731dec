package workflows

import (
	"context"

	"github.com/sealenv/sealenv/internal/audit"
	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/envelope"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/keychain"
)

// RevokeOptions configures the revoke workflow.
type RevokeOptions struct {
	// AdminUsername and AdminPassword authenticate the admin. Proven
	// before any mutation.
	AdminUsername string
	AdminPassword string

	// Username is the entry being removed.
	Username string
}

// RevokeResult contains the outcome of a revoke operation.
type RevokeResult struct {
	// Username is the revoked user.
	Username string

	// UserCount is the envelope's user count after the revocation.
	UserCount int
}

// Revoke removes a user's envelope entry, stopping future unwraps of the
// project key with their password. It does not rotate the project key:
// secret material the revoked user copied before revocation stays known
// to them, and the caller should treat any truly sensitive values as
// compromised and re-issue them.
//
// Returns ErrNotTeamProject, ErrInvalidPassword, ErrUserNotFound, or
// ErrCannotRevokeLastAdmin (revoking the only admin is rejected, even by
// that admin themself).
func Revoke(ctx context.Context, opts RevokeOptions) (*RevokeResult, error) {
	projectConfig, err := loadProject()
	if err != nil {
		return nil, err
	}
	if projectConfig.Project.Mode != configs.ModeTeam {
		return nil, serrors.ErrNotTeamProject
	}

	manager := envelope.NewManager(configs.ProjectSealenvSettings.KeyringPath)
	err = manager.RevokeUser(
		envelope.Credentials{Username: opts.AdminUsername, Password: opts.AdminPassword},
		opts.Username,
	)
	if err != nil {
		return nil, err
	}

	// A cached password for a revoked user is dead weight; drop it.
	_ = keychain.Delete(projectConfig.Project.UUID, opts.Username)

	users, err := manager.ListUsers()
	if err != nil {
		return nil, err
	}

	entry := audit.New(audit.ActionRevoke)
	entry.User = opts.AdminUsername
	entry.TargetUser = opts.Username
	audit.Log(entry)

	return &RevokeResult{
		Username:  opts.Username,
		UserCount: len(users),
	}, nil
}
