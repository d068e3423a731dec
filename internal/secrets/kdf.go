package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	serrors "github.com/sealenv/sealenv/internal/errors"
)

// Key and salt sizes are fixed across all token versions.
const (
	KeySize  = 32
	SaltSize = 32
)

// Token versions. Version 1 is the original release's derivation strength;
// it is decrypted forever but never produced by new encryptions.
const (
	TokenVersionLegacy  = 1
	TokenVersionCurrent = 2
)

// Iteration counts per token version. The current count targets a
// sub-second but non-trivial derivation cost on commodity hardware.
const (
	IterationsLegacy  = 100000
	IterationsCurrent = 310000
)

// IterationsForVersion returns the PBKDF2 iteration count a token version
// derives with.
func IterationsForVersion(version int) (int, error) {
	switch version {
	case TokenVersionLegacy:
		return IterationsLegacy, nil
	case TokenVersionCurrent:
		return IterationsCurrent, nil
	default:
		return 0, fmt.Errorf("%w: version %d", serrors.ErrUnsupportedVersion, version)
	}
}

// Derive turns a password and salt into a symmetric key using
// PBKDF2-HMAC-SHA256. It is deterministic: identical inputs always produce
// the same key. The password is consumed as UTF-8 bytes.
func Derive(password string, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations must be positive, got %d", serrors.ErrInvalidKDFParams, iterations)
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: key length must be positive, got %d", serrors.ErrInvalidKDFParams, keyLen)
	}

	return pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New), nil
}

// DeriveForVersion derives the key a token of the given version was
// encrypted under. The caller must pass the salt stored alongside the
// token's context; regenerating a salt silently derives a different key.
func DeriveForVersion(password string, salt []byte, version int) ([]byte, error) {
	iterations, err := IterationsForVersion(version)
	if err != nil {
		return nil, err
	}
	return Derive(password, salt, iterations, KeySize)
}

// GenerateSalt returns a fresh random salt. Salts are never reused across
// independent derivation contexts.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateProjectKey returns a fresh random 32-byte project key.
func GenerateProjectKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate project key: %w", err)
	}
	return key, nil
}
