package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sealenv/sealenv/internal/audit"
	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/envelope"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/secrets"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	// Team selects team mode: a per-user keyring wrapping one shared
	// project key. Default is standalone: a single password and keyref.
	Team bool

	// ProjectName overrides the default (the directory name).
	ProjectName string

	// Username identifies the creator; team mode records them as the
	// envelope's first admin.
	Username string

	// Password protects the project. Standalone: the keyref's password.
	// Team: the creator's personal password.
	Password string
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// Mode is "standalone" or "team".
	Mode string

	// ProjectName is the recorded project name.
	ProjectName string

	// ProjectPath is the directory the project was created in.
	ProjectPath string

	// ProjectUUID is the generated project identifier.
	ProjectUUID string
}

// Init creates a new sealenv project in the current directory.
//
// Standalone mode persists a keyref (salt, iteration count, KDF version)
// in the project config; values are later encrypted under a key derived
// from the password and that keyref. Team mode generates a random project
// key and writes a keyring with one admin entry wrapping it for the
// creator.
//
// Returns ErrProjectAlreadyInitialized if the directory (or an ancestor)
// already carries a .sealenv directory.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	if err := configs.InitProjectSettings(); err != nil {
		return nil, fmt.Errorf("initializing project settings: %w", err)
	}

	if configs.ProjectSealenvSettings.ProjectPath != "" {
		return nil, fmt.Errorf("%w: found .sealenv at %s",
			serrors.ErrProjectAlreadyInitialized, configs.ProjectSealenvSettings.ProjectPath)
	}

	// First contact with sealenv on this machine also seeds the user
	// config with the system username.
	if _, err := configs.EnsureUserConfig(); err != nil {
		return nil, fmt.Errorf("ensuring user config: %w", err)
	}

	projectPath, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	projectName := opts.ProjectName
	if projectName == "" {
		projectName = filepath.Base(projectPath)
	}

	mode := configs.ModeStandalone
	if opts.Team {
		mode = configs.ModeTeam
	}

	if err := secrets.EnsureProjectDirs(projectPath); err != nil {
		return nil, err
	}

	// Settings now point at the new directory.
	if err := configs.InitProjectSettings(); err != nil {
		return nil, fmt.Errorf("initializing project settings: %w", err)
	}

	projectConfig := &configs.ProjectConfig{
		Project: configs.Project{
			UUID:      configs.GenerateProjectUUID(),
			Name:      projectName,
			Mode:      mode,
			CreatedAt: time.Now().UTC(),
		},
	}

	if opts.Team {
		manager := envelope.NewManager(configs.ProjectSealenvSettings.KeyringPath)
		creds := envelope.Credentials{Username: opts.Username, Password: opts.Password}
		if err := manager.Initialize(creds, projectName); err != nil {
			return nil, err
		}
	} else {
		salt, err := secrets.GenerateSalt()
		if err != nil {
			return nil, err
		}
		projectConfig.Keyref = configs.NewKeyref(salt, secrets.IterationsCurrent, secrets.TokenVersionCurrent)
	}

	if err := configs.SaveProjectConfig(projectConfig); err != nil {
		return nil, err
	}

	entry := audit.New(audit.ActionInit)
	entry.User = opts.Username
	entry.Project = projectName
	entry.Mode = mode
	audit.Log(entry)

	return &InitResult{
		Mode:        mode,
		ProjectName: projectName,
		ProjectPath: projectPath,
		ProjectUUID: projectConfig.Project.UUID,
	}, nil
}
