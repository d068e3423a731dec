package workflows

import (
	"context"

	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/envelope"
	"github.com/sealenv/sealenv/internal/secrets"
)

// FileStatus summarizes one env file's values by structural inspection.
type FileStatus struct {
	Path      string
	Encrypted int
	Plaintext int
	Legacy    int
	Malformed []string
}

// StatusOptions configures the status workflow.
type StatusOptions struct {
	// FilePatterns restricts the report to matching files.
	FilePatterns []string
}

// StatusResult contains the project overview.
type StatusResult struct {
	Mode        string
	ProjectName string
	ProjectUUID string
	Files       []FileStatus
	UserCount   int
}

// Status reports the project's mode and a per-file count of encrypted,
// plaintext, legacy, and malformed values. Recognition is structural
// only; no password is required and no decryption is attempted.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	projectConfig, err := loadProject()
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		Mode:        projectConfig.Project.Mode,
		ProjectName: projectConfig.Project.Name,
		ProjectUUID: projectConfig.Project.UUID,
	}

	files, err := resolveTargetFiles(opts.FilePatterns)
	if err != nil {
		return nil, err
	}

	for _, path := range files {
		raw, err := readFile(path)
		if err != nil {
			return nil, err
		}

		status := FileStatus{Path: path}
		env := secrets.ParseEnvFile(raw)
		for _, entry := range env.Entries() {
			switch {
			case entry.TokenErr != nil:
				status.Malformed = append(status.Malformed, entry.Key)
			case entry.Encrypted:
				status.Encrypted++
				if token, err := secrets.ParseToken(entry.Value); err == nil && token.Version == secrets.TokenVersionLegacy {
					status.Legacy++
				}
			default:
				status.Plaintext++
			}
		}
		result.Files = append(result.Files, status)
	}

	if projectConfig.Project.Mode == configs.ModeTeam {
		manager := envelope.NewManager(configs.ProjectSealenvSettings.KeyringPath)
		if users, err := manager.ListUsers(); err == nil {
			result.UserCount = len(users)
		}
	}

	return result, nil
}
