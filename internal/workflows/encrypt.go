package workflows

import (
	"context"
	"fmt"

	"github.com/sealenv/sealenv/internal/audit"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/secrets"
)

// EncryptOptions configures the encrypt workflow.
type EncryptOptions struct {
	// FilePatterns specifies files to encrypt. If empty, every env file
	// under the project root is targeted.
	FilePatterns []string

	// Key restricts the operation to one entry name. Empty means every
	// plaintext entry.
	Key string

	// DryRun previews which values would be encrypted without writing.
	DryRun bool

	// Username and Password authenticate the caller.
	Username string
	Password string
}

// EncryptResult contains the outcome of an encrypt operation.
type EncryptResult struct {
	// Files lists the env files that were (or would be) rewritten.
	Files []string

	// Count is the number of values encrypted.
	Count int

	// AlreadyEncrypted is the number of values left alone because they
	// were tokens already.
	AlreadyEncrypted int

	// DryRun indicates whether this was a preview (no files modified).
	DryRun bool
}

// Encrypt seals plaintext values in env files in place. Each value
// becomes a versioned token on its own KEY=VALUE line; already-encrypted
// values are skipped, never double-encrypted.
//
// When the project already holds encrypted values the password is proven
// against one of them before anything is written, so a mistyped password
// cannot split the project across two keys.
//
// Returns ErrProjectNotInitialized, ErrNoFilesFound, ErrInvalidPassword,
// or ErrMalformedToken (corruption found while scanning).
func Encrypt(ctx context.Context, opts EncryptOptions) (*EncryptResult, error) {
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

	if err := verifyAgainstExisting(keys, targets); err != nil {
		return nil, err
	}

	currentKey, err := keys.Current()
	if err != nil {
		return nil, err
	}

	result := &EncryptResult{DryRun: opts.DryRun}

	if opts.Key != "" {
		if err := encryptOne(targets, opts.Key, currentKey, result, opts.DryRun); err != nil {
			return nil, err
		}
	} else {
		for _, tgt := range targets {
			touched := false
			for _, entry := range tgt.env.Entries() {
				if entry.Encrypted {
					result.AlreadyEncrypted++
					continue
				}
				if entry.Value == "" {
					continue
				}
				if !opts.DryRun {
					token, err := secrets.Encrypt([]byte(entry.Value), currentKey)
					if err != nil {
						return nil, fmt.Errorf("encrypting %s in %s: %w", entry.Key, tgt.path, err)
					}
					tgt.env.SetEntry(entry, token.String())
				}
				result.Count++
				touched = true
			}
			if touched {
				result.Files = append(result.Files, tgt.path)
			}
		}
	}

	if opts.DryRun {
		return result, nil
	}

	for _, tgt := range targets {
		if !containsPath(result.Files, tgt.path) {
			continue
		}
		if err := writeFile(tgt.path, tgt.env.Serialize()); err != nil {
			return nil, err
		}
	}

	entry := audit.New(audit.ActionEncrypt)
	entry.User = opts.Username
	entry.Files = result.Files
	entry.Count = result.Count
	audit.Log(entry)

	return result, nil
}

// encryptOne encrypts every entry named key across the targets. Duplicate
// lines sharing the key are each encrypted in place.
func encryptOne(targets []*fileTarget, key string, currentKey []byte, result *EncryptResult, dryRun bool) error {
	found := false
	for _, tgt := range targets {
		touched := false
		for _, entry := range tgt.env.Entries() {
			if entry.Key != key {
				continue
			}
			found = true
			if entry.Encrypted {
				result.AlreadyEncrypted++
				continue
			}
			if !dryRun {
				token, err := secrets.Encrypt([]byte(entry.Value), currentKey)
				if err != nil {
					return fmt.Errorf("encrypting %s in %s: %w", key, tgt.path, err)
				}
				tgt.env.SetEntry(entry, token.String())
			}
			result.Count++
			touched = true
		}
		if touched {
			result.Files = append(result.Files, tgt.path)
		}
	}
	if !found {
		return fmt.Errorf("%w: no entry named %s", serrors.ErrNoFilesFound, key)
	}
	return nil
}

func containsPath(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}
