package workflows

import (
	"context"

	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/envelope"
	serrors "github.com/sealenv/sealenv/internal/errors"
)

// AccessOptions configures the access workflow.
type AccessOptions struct{}

// AccessResult contains the outcome of an access listing.
type AccessResult struct {
	// ProjectName is the envelope's recorded project name.
	ProjectName string

	// Users are the envelope's entries in stored order.
	Users []envelope.UserEntry
}

// Access lists the envelope's users, roles, and access times. Read-only
// and unauthenticated: usernames, roles, and timestamps are not secret,
// only the wrapped keys are, and those are never exposed here.
func Access(ctx context.Context, opts AccessOptions) (*AccessResult, error) {
	projectConfig, err := loadProject()
	if err != nil {
		return nil, err
	}
	if projectConfig.Project.Mode != configs.ModeTeam {
		return nil, serrors.ErrNotTeamProject
	}

	manager := envelope.NewManager(configs.ProjectSealenvSettings.KeyringPath)
	users, err := manager.ListUsers()
	if err != nil {
		return nil, err
	}

	return &AccessResult{
		ProjectName: projectConfig.Project.Name,
		Users:       users,
	}, nil
}
