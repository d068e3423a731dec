package workflows

import (
	"context"
	"fmt"

	"github.com/sealenv/sealenv/internal/audit"
	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/envelope"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/utils"
)

// RegisterOptions configures the register workflow.
type RegisterOptions struct {
	// AdminUsername and AdminPassword authenticate the admin performing
	// the registration. The admin's password is proven before any
	// mutation.
	AdminUsername string
	AdminPassword string

	// NewUsername and NewPassword are the entry being added.
	NewUsername string
	NewPassword string

	// Admin grants the new user the admin role. Default is developer.
	Admin bool
}

// RegisterResult contains the outcome of a register operation.
type RegisterResult struct {
	// Username is the registered user.
	Username string

	// Role is the granted role.
	Role string

	// UserCount is the envelope's user count after the registration.
	UserCount int
}

// Register wraps the project key for a new user under their own password.
// Team mode only: a standalone project has no envelope to add users to.
//
// Returns ErrNotTeamProject, ErrInvalidPassword (admin authentication
// failed; nothing was mutated), or ErrUserAlreadyExists.
func Register(ctx context.Context, opts RegisterOptions) (*RegisterResult, error) {
	projectConfig, err := loadProject()
	if err != nil {
		return nil, err
	}
	if projectConfig.Project.Mode != configs.ModeTeam {
		return nil, serrors.ErrNotTeamProject
	}

	if !utils.IsValidUsername(opts.NewUsername) {
		return nil, fmt.Errorf("invalid username %q", opts.NewUsername)
	}

	role := envelope.RoleDeveloper
	if opts.Admin {
		role = envelope.RoleAdmin
	}

	manager := envelope.NewManager(configs.ProjectSealenvSettings.KeyringPath)
	err = manager.AddUser(
		envelope.Credentials{Username: opts.AdminUsername, Password: opts.AdminPassword},
		envelope.Credentials{Username: opts.NewUsername, Password: opts.NewPassword},
		role,
	)
	if err != nil {
		return nil, err
	}

	users, err := manager.ListUsers()
	if err != nil {
		return nil, err
	}

	entry := audit.New(audit.ActionRegister)
	entry.User = opts.AdminUsername
	entry.TargetUser = opts.NewUsername
	entry.Role = role
	audit.Log(entry)

	return &RegisterResult{
		Username:  opts.NewUsername,
		Role:      role,
		UserCount: len(users),
	}, nil
}
