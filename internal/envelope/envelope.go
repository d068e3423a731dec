package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/secrets"
	"github.com/sealenv/sealenv/internal/secure"
	"github.com/sealenv/sealenv/internal/utils"
)

// FormatVersion is the current envelope file format version.
const FormatVersion = 1

// User roles. At least one admin must exist at all times after
// initialization.
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
)

// UserEntry wraps the project key for one user. WrappedKey, Salt, IV, and
// AuthTag are base64 in JSON. KDFVersion records the derivation parameters
// the wrap was made with; entries written before the field existed are
// legacy version 1.
type UserEntry struct {
	Username   string     `json:"username"`
	WrappedKey string     `json:"wrappedKey"`
	Salt       string     `json:"salt"`
	IV         string     `json:"iv"`
	AuthTag    string     `json:"authTag"`
	KDFVersion int        `json:"kdfVersion,omitempty"`
	Role       string     `json:"role"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastAccess *time.Time `json:"lastAccess,omitempty"`
}

// Metadata describes the envelope's origin.
type Metadata struct {
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
	ProjectName string    `json:"projectName,omitempty"`
}

// Envelope is the persisted keyring record.
type Envelope struct {
	Version  int         `json:"version"`
	Users    []UserEntry `json:"users"`
	Metadata Metadata    `json:"metadata"`
}

// envelopeSchema validates the raw JSON before decoding, so corruption is
// reported with per-field detail instead of a zero-valued struct.
const envelopeSchema = `{
	"type": "object",
	"required": ["version", "users", "metadata"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"users": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["username", "wrappedKey", "salt", "iv", "authTag", "role", "createdAt"],
				"properties": {
					"username": {"type": "string", "minLength": 1},
					"wrappedKey": {"type": "string"},
					"salt": {"type": "string", "minLength": 1},
					"iv": {"type": "string", "minLength": 1},
					"authTag": {"type": "string", "minLength": 1},
					"kdfVersion": {"type": "integer", "minimum": 1},
					"role": {"type": "string", "enum": ["admin", "developer"]},
					"createdAt": {"type": "string"},
					"lastAccess": {"type": "string"}
				}
			}
		},
		"metadata": {
			"type": "object",
			"required": ["createdAt", "createdBy"],
			"properties": {
				"createdAt": {"type": "string"},
				"createdBy": {"type": "string"},
				"projectName": {"type": "string"}
			}
		}
	}
}`

// kdfVersion returns the entry's effective derivation version.
func (u *UserEntry) kdfVersion() int {
	if u.KDFVersion == 0 {
		return secrets.TokenVersionLegacy
	}
	return u.KDFVersion
}

// saltBytes decodes the entry's stored salt. The stored salt is the only
// valid derivation input for this entry; a regenerated salt would silently
// derive a different key.
func (u *UserEntry) saltBytes() ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(u.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s has an undecodable salt", serrors.ErrInvalidEnvelope, u.Username)
	}
	return salt, nil
}

// wrapToken rebuilds the AEAD token for the entry's wrapped project key.
func (u *UserEntry) wrapToken() (*secrets.Token, error) {
	iv, err := base64.StdEncoding.DecodeString(u.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s has an undecodable IV", serrors.ErrInvalidEnvelope, u.Username)
	}
	tag, err := base64.StdEncoding.DecodeString(u.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s has an undecodable auth tag", serrors.ErrInvalidEnvelope, u.Username)
	}
	wrapped, err := base64.StdEncoding.DecodeString(u.WrappedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s has an undecodable wrapped key", serrors.ErrInvalidEnvelope, u.Username)
	}
	return &secrets.Token{
		Version:    u.kdfVersion(),
		IV:         iv,
		Tag:        tag,
		Ciphertext: wrapped,
	}, nil
}

// newUserEntry wraps projectKey for a user under a key derived from their
// password and a fresh salt, at the current derivation version.
func newUserEntry(username, password string, projectKey []byte, role string) (*UserEntry, error) {
	salt, err := secrets.GenerateSalt()
	if err != nil {
		return nil, err
	}

	key, err := secrets.DeriveForVersion(password, salt, secrets.TokenVersionCurrent)
	if err != nil {
		return nil, err
	}
	defer secure.Wipe(key)

	token, err := secrets.Encrypt(projectKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap project key for %s: %w", username, err)
	}

	return &UserEntry{
		Username:   username,
		WrappedKey: base64.StdEncoding.EncodeToString(token.Ciphertext),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(token.IV),
		AuthTag:    base64.StdEncoding.EncodeToString(token.Tag),
		KDFVersion: token.Version,
		Role:       role,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// findUser returns the index of username in the users list, or -1.
func (e *Envelope) findUser(username string) int {
	for i := range e.Users {
		if e.Users[i].Username == username {
			return i
		}
	}
	return -1
}

// adminCount returns how many admin entries the envelope holds.
func (e *Envelope) adminCount() int {
	n := 0
	for i := range e.Users {
		if e.Users[i].Role == RoleAdmin {
			n++
		}
	}
	return n
}

// Load reads and validates an envelope file. The raw JSON is checked
// against the schema before decoding; violations are reported as envelope
// corruption with the validator's per-field messages.
func Load(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no keyring at %s", serrors.ErrProjectNotInitialized, path)
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(envelopeSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrInvalidEnvelope, err)
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("%w:\n  - %s", serrors.ErrInvalidEnvelope, strings.Join(msgs, "\n  - "))
	}

	env := &Envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrInvalidEnvelope, err)
	}

	if env.Version != FormatVersion {
		return nil, fmt.Errorf("%w: keyring format version %d", serrors.ErrUnsupportedVersion, env.Version)
	}

	seen := make(map[string]bool, len(env.Users))
	for i := range env.Users {
		if seen[env.Users[i].Username] {
			return nil, fmt.Errorf("%w: duplicate user %s", serrors.ErrInvalidEnvelope, env.Users[i].Username)
		}
		seen[env.Users[i].Username] = true
	}

	return env, nil
}

// Save writes the envelope with an atomic replace, so no reader ever
// observes a half-written keyring.
func Save(path string, env *Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode keyring: %w", err)
	}
	data = append(data, '\n')

	if err := utils.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}
