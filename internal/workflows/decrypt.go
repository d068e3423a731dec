package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/sealenv/sealenv/internal/audit"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/secrets"
)

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	// FilePatterns specifies files to decrypt. If empty, every env file
	// under the project root is targeted.
	FilePatterns []string

	// Key restricts the operation to one entry name.
	Key string

	// Stdout returns decrypted contents in the result instead of
	// rewriting files, so plaintext never touches disk.
	Stdout bool

	// DryRun previews which values would be decrypted without writing.
	DryRun bool

	// Username and Password authenticate the caller.
	Username string
	Password string
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	// Files lists the env files that were (or would be) rewritten.
	Files []string

	// Count is the number of values decrypted.
	Count int

	// Contents holds each file's decrypted body when Stdout is set.
	Contents map[string]string

	// DryRun indicates whether this was a preview.
	DryRun bool
}

// Decrypt opens encrypted values in env files back to plaintext. All
// values are verified to decrypt before any file is written; a single
// failure aborts with zero mutation so a partially-plaintext file can
// never exist.
//
// Returns ErrInvalidPassword when any token fails authentication and
// ErrMalformedToken when a value is structurally corrupt. The two are
// never conflated, because only the former can be fixed by retrying.
func Decrypt(ctx context.Context, opts DecryptOptions) (*DecryptResult, error) {
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

	targets, err := parseTargets(files)
	if err != nil {
		return nil, err
	}

	keys, err := unlockValueKeys(projectConfig, opts.Username, opts.Password)
	if err != nil {
		return nil, err
	}
	defer keys.Close()

	result := &DecryptResult{DryRun: opts.DryRun}
	if opts.Stdout {
		result.Contents = make(map[string]string)
	}

	// Verify-then-commit: open every token in memory first.
	for _, tgt := range targets {
		touched := false
		for _, entry := range tgt.env.Entries() {
			if !entry.Encrypted {
				continue
			}
			if opts.Key != "" && entry.Key != opts.Key {
				continue
			}

			token, err := secrets.ParseToken(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s in %s", serrors.ErrMalformedToken, entry.Key, tgt.path)
			}
			key, err := keys.ForVersion(token.Version)
			if err != nil {
				return nil, err
			}
			plaintext, err := secrets.Decrypt(token, key)
			if err != nil {
				if errors.Is(err, serrors.ErrAuthenticationFailed) {
					return nil, fmt.Errorf("%w: %s in %s did not decrypt",
						serrors.ErrInvalidPassword, entry.Key, tgt.path)
				}
				return nil, err
			}

			tgt.env.SetEntry(entry, string(plaintext))
			result.Count++
			touched = true
		}
		if touched {
			result.Files = append(result.Files, tgt.path)
		}
	}

	if opts.Key != "" && result.Count == 0 {
		return nil, fmt.Errorf("%w: no encrypted entry named %s", serrors.ErrNoFilesFound, opts.Key)
	}

	if opts.DryRun {
		return result, nil
	}

	for _, tgt := range targets {
		if !containsPath(result.Files, tgt.path) {
			continue
		}
		if opts.Stdout {
			result.Contents[tgt.path] = tgt.env.Serialize()
			continue
		}
		if err := writeFile(tgt.path, tgt.env.Serialize()); err != nil {
			return nil, err
		}
	}

	entry := audit.New(audit.ActionDecrypt)
	entry.User = opts.Username
	entry.Files = result.Files
	entry.Count = result.Count
	audit.Log(entry)

	return result, nil
}
