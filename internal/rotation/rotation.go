package rotation

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/sealenv/sealenv/internal/configs"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/secrets"
	"github.com/sealenv/sealenv/internal/secure"
	"github.com/sealenv/sealenv/internal/utils"
)

// Options configures one rotation run over a standalone project's files.
type Options struct {
	OldPassword string
	NewPassword string

	// Files are the env files holding the project's encrypted values.
	Files []string

	// Keyref is the active key reference the old password derives
	// against. Its stored salt is the only valid derivation input.
	Keyref *configs.Keyref

	// PendingKeyref is the staged keyref left behind by an interrupted
	// run. Its salt becomes the new salt, so files already rewritten
	// verify under the new password and the retry converges on one
	// keyref.
	PendingKeyref *configs.Keyref

	// Stage durably persists the new keyref before the first file
	// write. Without it, a failure partway through a multi-file commit
	// loses the only salt that can re-derive the new key.
	Stage func(*configs.Keyref) error
}

// Result reports what a successful rotation changed.
type Result struct {
	// RotatedFiles lists the files that were rewritten.
	RotatedFiles []string

	// ReencryptedCount is the total number of values re-encrypted.
	ReencryptedCount int

	// NewKeyref is the key reference for the new password. The caller
	// persists it after the file writes succeed, never before.
	NewKeyref *configs.Keyref
}

// target is one file's state captured during the read phase. The hash
// guards the commit phase against a concurrent writer.
type target struct {
	path       string
	env        *secrets.EnvFile
	hash       [32]byte
	plaintexts map[*secrets.Entry][]byte
}

// Rotate runs the protocol: prove the old password against every
// encrypted value, then re-encrypt everything under the new password and
// commit. Any verification failure aborts with zero mutation:
//
//   - a value that fails to decrypt means the old password is wrong
//     (ErrInvalidOldPassword; the user retries),
//   - a structurally broken value means corruption (ErrMalformedToken;
//     retrying cannot help and the file needs restoring),
//   - a file that changed between read and commit means a concurrent
//     writer (ErrConcurrentModification; re-run once it settles).
//
// With zero encrypted values there is nothing to migrate; only the key
// reference rotates.
//
// The new keyref is staged durably before the first file write. A
// failure partway through a multi-file commit leaves the staged salt on
// disk, so every file already rewritten stays decryptable and a retry
// with PendingKeyref set finishes the job.
func Rotate(opts Options) (*Result, error) {
	if opts.Keyref == nil {
		return nil, serrors.ErrProjectNotInitialized
	}

	salt, err := opts.Keyref.SaltBytes()
	if err != nil {
		return nil, err
	}

	// A retry of an interrupted run reuses the staged salt; a fresh run
	// generates a new one.
	var newSalt []byte
	if opts.PendingKeyref != nil {
		newSalt, err = opts.PendingKeyref.SaltBytes()
	} else {
		newSalt, err = secrets.GenerateSalt()
	}
	if err != nil {
		return nil, err
	}

	// Values may carry mixed token versions (legacy tokens survive until
	// their next rotation), so the old key is derived once per version
	// seen, always from the keyref's stored salt.
	oldKeys := NewPasswordKeys(opts.OldPassword, salt)
	defer oldKeys.Wipe()

	// Files rewritten by an interrupted run already hold tokens under
	// the new password and staged salt; those verify against newKeys.
	newKeys := NewPasswordKeys(opts.NewPassword, newSalt)
	defer newKeys.Wipe()

	var recoveryKeys *PasswordKeys
	if opts.PendingKeyref != nil {
		recoveryKeys = newKeys
	}

	// Read phase: parse every file, decrypt every encrypted value. No
	// write happens anywhere in this phase.
	targets, err := readAndVerify(opts.Files, oldKeys, recoveryKeys)
	if err != nil {
		return nil, err
	}

	newKey, err := newKeys.ForVersion(secrets.TokenVersionCurrent)
	if err != nil {
		return nil, err
	}

	result := &Result{
		NewKeyref: configs.NewKeyref(newSalt, secrets.IterationsCurrent, secrets.TokenVersionCurrent),
	}

	// Build every new file body in memory before touching disk. Each
	// entry is re-encrypted in place, so duplicate keys in one file
	// each get their own fresh token.
	contents := make(map[string]string, len(targets))
	for _, tgt := range targets {
		if len(tgt.plaintexts) == 0 {
			continue
		}
		for entry, plaintext := range tgt.plaintexts {
			token, err := secrets.Encrypt(plaintext, newKey)
			if err != nil {
				return nil, fmt.Errorf("failed to re-encrypt %s in %s: %w", entry.Key, tgt.path, err)
			}
			tgt.env.SetEntry(entry, token.String())
			result.ReencryptedCount++
		}
		contents[tgt.path] = tgt.env.Serialize()
	}

	// Commit phase. Re-check each target against its read-time hash so a
	// concurrent writer's changes are never overwritten silently.
	if err := checkUnchanged(targets); err != nil {
		return nil, err
	}

	// Stage the new keyref before the first file write. If a write
	// fails partway through, the staged salt still re-derives the new
	// key for every file already rewritten, and a retry picks up from
	// here.
	if opts.Stage != nil {
		if err := opts.Stage(result.NewKeyref); err != nil {
			return nil, fmt.Errorf("failed to stage new keyref: %w", err)
		}
	}

	for _, tgt := range targets {
		body, ok := contents[tgt.path]
		if !ok {
			continue
		}
		if err := utils.WriteFileAtomic(tgt.path, []byte(body), 0600); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", tgt.path, err)
		}
		result.RotatedFiles = append(result.RotatedFiles, tgt.path)
	}

	return result, nil
}

// checkUnchanged compares each target file against the hash captured when
// it was read. A mismatch means another writer touched the file after
// verification; overwriting it would silently discard their change.
func checkUnchanged(targets []*target) error {
	for _, tgt := range targets {
		current, err := os.ReadFile(tgt.path)
		if err != nil {
			return fmt.Errorf("failed to re-read %s: %w", tgt.path, err)
		}
		if sha256.Sum256(current) != tgt.hash {
			return fmt.Errorf("%w: %s", serrors.ErrConcurrentModification, tgt.path)
		}
	}
	return nil
}

// PasswordKeys derives one key per token version on demand, so a file
// mixing legacy and current tokens verifies without re-deriving per
// value. Wipe destroys every derived key.
type PasswordKeys struct {
	password string
	salt     []byte
	keys     map[int][]byte
}

func NewPasswordKeys(password string, salt []byte) *PasswordKeys {
	return &PasswordKeys{password: password, salt: salt, keys: make(map[int][]byte)}
}

func (c *PasswordKeys) ForVersion(version int) ([]byte, error) {
	if key, ok := c.keys[version]; ok {
		return key, nil
	}
	key, err := secrets.DeriveForVersion(c.password, c.salt, version)
	if err != nil {
		return nil, err
	}
	c.keys[version] = key
	return key, nil
}

func (c *PasswordKeys) Wipe() {
	for _, key := range c.keys {
		secure.Wipe(key)
	}
}

// readAndVerify captures every target file and proves the old password's
// keys open all of its encrypted values. Decrypted plaintexts are
// returned keyed by entry so the commit phase never needs the old keys
// again. recoveryKeys, when non-nil, covers values an interrupted run
// already sealed under the staged salt.
func readAndVerify(files []string, oldKeys, recoveryKeys *PasswordKeys) ([]*target, error) {
	var targets []*target
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		env := secrets.ParseEnvFile(string(raw))

		if malformed := env.MalformedEntries(); len(malformed) > 0 {
			return nil, fmt.Errorf("%w: %s in %s",
				malformed[0].TokenErr, malformed[0].Key, path)
		}

		tgt := &target{
			path:       path,
			env:        env,
			hash:       sha256.Sum256(raw),
			plaintexts: make(map[*secrets.Entry][]byte),
		}

		for _, entry := range env.EncryptedEntries() {
			token, err := secrets.ParseToken(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s in %s", err, entry.Key, path)
			}
			plaintext, err := decryptWith(token, oldKeys)
			if err != nil && recoveryKeys != nil && errors.Is(err, serrors.ErrAuthenticationFailed) {
				plaintext, err = decryptWith(token, recoveryKeys)
			}
			if err != nil {
				if errors.Is(err, serrors.ErrAuthenticationFailed) {
					return nil, fmt.Errorf("%w: %s in %s did not decrypt",
						serrors.ErrInvalidOldPassword, entry.Key, path)
				}
				return nil, err
			}
			tgt.plaintexts[entry] = plaintext
		}

		targets = append(targets, tgt)
	}
	return targets, nil
}

func decryptWith(token *secrets.Token, keys *PasswordKeys) ([]byte, error) {
	key, err := keys.ForVersion(token.Version)
	if err != nil {
		return nil, err
	}
	return secrets.Decrypt(token, key)
}

// FileReport summarizes one file's values after a verification pass.
type FileReport struct {
	Path      string
	Encrypted int
	Plaintext int
	Legacy    int
	Failed    []string
	Malformed []string
}

// Verify checks every encrypted value in files and returns a report per
// file. keyFor supplies the key for a token version: a PasswordKeys
// ForVersion in standalone mode, the project key regardless of version in
// team mode. Authentication failures and malformed tokens are collected
// rather than aborting, so one pass surfaces every problem.
func Verify(files []string, keyFor func(version int) ([]byte, error)) ([]FileReport, error) {
	var reports []FileReport
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		env := secrets.ParseEnvFile(string(raw))
		report := FileReport{Path: path}

		for _, entry := range env.Entries() {
			switch {
			case entry.TokenErr != nil:
				report.Malformed = append(report.Malformed, entry.Key)
			case entry.Encrypted:
				report.Encrypted++
				token, err := secrets.ParseToken(entry.Value)
				if err != nil {
					report.Malformed = append(report.Malformed, entry.Key)
					continue
				}
				if token.Version == secrets.TokenVersionLegacy {
					report.Legacy++
				}
				key, err := keyFor(token.Version)
				if err != nil {
					return nil, err
				}
				plaintext, err := secrets.Decrypt(token, key)
				if err != nil {
					report.Failed = append(report.Failed, entry.Key)
					continue
				}
				secure.Wipe(plaintext)
			default:
				report.Plaintext++
			}
		}

		reports = append(reports, report)
	}
	return reports, nil
}
