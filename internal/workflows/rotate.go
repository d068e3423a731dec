package workflows

import (
	"context"
	"fmt"

	"github.com/sealenv/sealenv/internal/audit"
	"github.com/sealenv/sealenv/internal/configs"
	"github.com/sealenv/sealenv/internal/envelope"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/rotation"
)

// RotateOptions configures the rotate workflow.
type RotateOptions struct {
	// FilePatterns specifies the env files to migrate in standalone
	// mode. If empty, every env file under the project root is targeted.
	// Ignored in team mode, where only the caller's wrapped key changes.
	FilePatterns []string

	// Username identifies the caller in team mode.
	Username string

	// OldPassword must verify against every encrypted value (standalone)
	// or the caller's wrapped key (team) before anything changes.
	OldPassword string

	// NewPassword replaces it after full verification.
	NewPassword string
}

// RotateResult contains the outcome of a rotate operation.
type RotateResult struct {
	// Mode is "standalone" or "team".
	Mode string

	// RotatedFiles lists the env files that were rewritten (standalone).
	RotatedFiles []string

	// ReencryptedCount is the number of values re-encrypted (standalone).
	ReencryptedCount int
}

// Rotate changes the caller's password.
//
// Standalone mode runs the full migration protocol: every encrypted value
// in every target file must decrypt under the old password before a
// single byte is written; then everything is re-encrypted under the new
// password with a fresh salt and the keyref is updated last. A wrong old
// password, a corrupt value, or a concurrent writer each abort with zero
// mutation.
//
// Team mode re-wraps the caller's copy of the project key under the new
// password. Value files and other users are untouched; the project key
// itself never changes.
func Rotate(ctx context.Context, opts RotateOptions) (*RotateResult, error) {
	projectConfig, err := loadProject()
	if err != nil {
		return nil, err
	}

	result := &RotateResult{Mode: projectConfig.Project.Mode}

	switch projectConfig.Project.Mode {
	case configs.ModeTeam:
		manager := envelope.NewManager(configs.ProjectSealenvSettings.KeyringPath)
		if err := manager.RotatePassword(opts.Username, opts.OldPassword, opts.NewPassword); err != nil {
			return nil, err
		}

	case configs.ModeStandalone:
		files, err := resolveTargetFiles(opts.FilePatterns)
		if err != nil {
			return nil, err
		}

		// A staged keyref left by an interrupted run carries the only
		// salt that can open files that run already rewrote; the retry
		// resumes against it.
		pending, err := configs.LoadPendingKeyref()
		if err != nil {
			return nil, err
		}

		rotated, err := rotation.Rotate(rotation.Options{
			OldPassword:   opts.OldPassword,
			NewPassword:   opts.NewPassword,
			Files:         files,
			Keyref:        projectConfig.Keyref,
			PendingKeyref: pending,
			Stage:         configs.SavePendingKeyref,
		})
		if err != nil {
			return nil, err
		}

		// The keyref is promoted only after every file write succeeded;
		// an earlier failure leaves the old password valid for every
		// untouched value and the staged keyref valid for the rest, so
		// the operation is safe to retry.
		projectConfig.Keyref = rotated.NewKeyref
		if err := configs.SaveProjectConfig(projectConfig); err != nil {
			return nil, fmt.Errorf("persisting rotated keyref: %w", err)
		}
		if err := configs.ClearPendingKeyref(); err != nil {
			return nil, err
		}

		result.RotatedFiles = rotated.RotatedFiles
		result.ReencryptedCount = rotated.ReencryptedCount

	default:
		return nil, fmt.Errorf("%w: unknown mode %q", serrors.ErrInvalidProjectConfig, projectConfig.Project.Mode)
	}

	entry := audit.New(audit.ActionRotate)
	entry.User = opts.Username
	entry.Files = result.RotatedFiles
	entry.Count = result.ReencryptedCount
	audit.Log(entry)

	return result, nil
}
