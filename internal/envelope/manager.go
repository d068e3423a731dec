package envelope

import (
	"errors"
	"fmt"
	"os"
	"time"

	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/secrets"
	"github.com/sealenv/sealenv/internal/secure"
)

// Credentials identify one user at the password boundary. The password is
// consumed by key derivation and must not be retained by callers longer
// than the operation needs.
type Credentials struct {
	Username string
	Password string
}

// Manager performs all envelope mutations for one keyring file. Callers
// serialize access: one mutation in flight per file.
type Manager struct {
	Path string
}

// NewManager returns a manager for the keyring at path.
func NewManager(path string) *Manager {
	return &Manager{Path: path}
}

// Exists reports whether the keyring file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.Path)
	return err == nil
}

// Initialize creates the envelope with a fresh project key and a single
// admin entry for creds. Fails if the keyring already exists.
func (m *Manager) Initialize(creds Credentials, projectName string) error {
	if m.Exists() {
		return fmt.Errorf("%w: keyring already exists at %s", serrors.ErrProjectAlreadyInitialized, m.Path)
	}

	projectKey, err := secrets.GenerateProjectKey()
	if err != nil {
		return err
	}

	// The enclave wipes the raw copy; the plaintext key only exists
	// again inside the With callback.
	kb := secure.Protect(projectKey)
	var entry *UserEntry
	if err := kb.With(func(key []byte) error {
		var werr error
		entry, werr = newUserEntry(creds.Username, creds.Password, key, RoleAdmin)
		return werr
	}); err != nil {
		return err
	}

	env := &Envelope{
		Version: FormatVersion,
		Users:   []UserEntry{*entry},
		Metadata: Metadata{
			CreatedAt:   time.Now().UTC(),
			CreatedBy:   creds.Username,
			ProjectName: projectName,
		},
	}

	return Save(m.Path, env)
}

// Unlock verifies creds against the envelope and returns the project key.
// The key is derived from the password and the matched entry's stored
// salt; a failed unwrap is reported as ErrInvalidPassword. On success the
// entry's last-access time is updated and persisted.
//
// This is the single trust-verification primitive every privileged
// operation builds on. The caller owns the returned key and should wipe
// it when done.
func (m *Manager) Unlock(creds Credentials) ([]byte, error) {
	env, err := Load(m.Path)
	if err != nil {
		return nil, err
	}

	key, err := m.unlockLoaded(env, creds)
	if err != nil {
		return nil, err
	}

	// Best effort: a failed last-access write must not invalidate a
	// successful authentication.
	_ = Save(m.Path, env)

	return key, nil
}

// unlockLoaded verifies creds against an already-loaded envelope and
// updates the matched entry's LastAccess in place without persisting.
func (m *Manager) unlockLoaded(env *Envelope, creds Credentials) ([]byte, error) {
	i := env.findUser(creds.Username)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", serrors.ErrUserNotFound, creds.Username)
	}
	user := &env.Users[i]

	salt, err := user.saltBytes()
	if err != nil {
		return nil, err
	}

	token, err := user.wrapToken()
	if err != nil {
		return nil, err
	}

	derived, err := secrets.DeriveForVersion(creds.Password, salt, user.kdfVersion())
	if err != nil {
		return nil, err
	}
	defer wipe(derived)

	projectKey, err := secrets.Decrypt(token, derived)
	if err != nil {
		if errors.Is(err, serrors.ErrAuthenticationFailed) {
			return nil, fmt.Errorf("%w for user %s", serrors.ErrInvalidPassword, creds.Username)
		}
		return nil, err
	}

	now := time.Now().UTC()
	user.LastAccess = &now

	return projectKey, nil
}

// AddUser wraps the project key for a new user. The admin's password is
// verified first; no mutation happens when admin authentication fails.
func (m *Manager) AddUser(adminCreds, newCreds Credentials, role string) error {
	if role != RoleAdmin && role != RoleDeveloper {
		return fmt.Errorf("invalid role %q", role)
	}

	env, err := Load(m.Path)
	if err != nil {
		return err
	}

	projectKey, err := m.unlockLoaded(env, adminCreds)
	if err != nil {
		return err
	}
	kb := secure.Protect(projectKey)

	if env.findUser(newCreds.Username) >= 0 {
		return fmt.Errorf("%w: %s", serrors.ErrUserAlreadyExists, newCreds.Username)
	}

	var entry *UserEntry
	if err := kb.With(func(key []byte) error {
		var werr error
		entry, werr = newUserEntry(newCreds.Username, newCreds.Password, key, role)
		return werr
	}); err != nil {
		return err
	}

	env.Users = append(env.Users, *entry)
	return Save(m.Path, env)
}

// RevokeUser removes a user's entry. The admin's password is verified
// first. Revoking the only remaining admin is rejected, including an
// admin revoking themself. Revocation stops future unwraps; it does not
// rotate the project key, so material the revoked user already copied
// stays known to them.
func (m *Manager) RevokeUser(adminCreds Credentials, username string) error {
	env, err := Load(m.Path)
	if err != nil {
		return err
	}

	projectKey, err := m.unlockLoaded(env, adminCreds)
	if err != nil {
		return err
	}
	wipe(projectKey)

	i := env.findUser(username)
	if i < 0 {
		return fmt.Errorf("%w: %s", serrors.ErrUserNotFound, username)
	}

	if env.Users[i].Role == RoleAdmin && env.adminCount() == 1 {
		return fmt.Errorf("%w: %s", serrors.ErrCannotRevokeLastAdmin, username)
	}

	env.Users = append(env.Users[:i], env.Users[i+1:]...)
	return Save(m.Path, env)
}

// RotatePassword re-wraps one user's project key under a new password
// with a fresh salt at the current derivation version. The old password
// is proven first by unwrapping; a wrong old password aborts with zero
// mutation. Other users' entries are untouched; the project key itself
// does not change.
func (m *Manager) RotatePassword(username, oldPassword, newPassword string) error {
	env, err := Load(m.Path)
	if err != nil {
		return err
	}

	projectKey, err := m.unlockLoaded(env, Credentials{Username: username, Password: oldPassword})
	if err != nil {
		if errors.Is(err, serrors.ErrInvalidPassword) {
			return fmt.Errorf("%w for user %s", serrors.ErrInvalidOldPassword, username)
		}
		return err
	}
	kb := secure.Protect(projectKey)

	var entry *UserEntry
	if err := kb.With(func(key []byte) error {
		var werr error
		entry, werr = newUserEntry(username, newPassword, key, env.Users[env.findUser(username)].Role)
		return werr
	}); err != nil {
		return err
	}

	i := env.findUser(username)
	entry.CreatedAt = env.Users[i].CreatedAt
	entry.LastAccess = env.Users[i].LastAccess
	env.Users[i] = *entry

	return Save(m.Path, env)
}

// ListUsers returns the envelope's entries. Read-only; no authentication
// is required because usernames, roles, and timestamps are not secret.
func (m *Manager) ListUsers() ([]UserEntry, error) {
	env, err := Load(m.Path)
	if err != nil {
		return nil, err
	}
	return env.Users, nil
}

// wipe zeroes sensitive bytes.
func wipe(b []byte) {
	secure.Wipe(b)
}
