package workflows

import (
	"context"

	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/rotation"
)

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	// FilePatterns restricts the check to matching files.
	FilePatterns []string

	// Username and Password authenticate the caller.
	Username string
	Password string
}

// DoctorResult contains the per-file verification reports.
type DoctorResult struct {
	// Reports hold one entry per checked file.
	Reports []rotation.FileReport

	// Healthy is true when every encrypted value decrypted and nothing
	// was malformed.
	Healthy bool
}

// Doctor attempts to decrypt every encrypted value and reports per-file
// results, keeping authentication failures (the password is wrong for
// that value) strictly apart from malformed tokens (the value is corrupt
// and no password will fix it). Read-only: no file is modified.
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	projectConfig, err := loadProject()
	if err != nil {
		return nil, err
	}

	files, err := resolveTargetFiles(opts.FilePatterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, serrors.ErrNoFilesFound
	}

	keys, err := unlockValueKeys(projectConfig, opts.Username, opts.Password)
	if err != nil {
		return nil, err
	}
	defer keys.Close()

	reports, err := rotation.Verify(files, keys.ForVersion)
	if err != nil {
		return nil, err
	}

	result := &DoctorResult{Reports: reports, Healthy: true}
	for _, r := range reports {
		if len(r.Failed) > 0 || len(r.Malformed) > 0 {
			result.Healthy = false
			break
		}
	}

	return result, nil
}
