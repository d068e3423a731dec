package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	serrors "github.com/sealenv/sealenv/internal/errors"
)

// Textual token layout: ENC[version|iv_b64|tag_b64|ct_b64].
const (
	tokenPrefix   = "ENC["
	tokenSuffix   = "]"
	tokenFieldSep = "|"

	IVSize  = 12
	TagSize = 16
)

// Token is the parsed form of one encrypted value. The version records the
// derivation parameters the encrypting key was produced with, so legacy
// values stay decryptable after the defaults move on.
type Token struct {
	Version    int
	IV         []byte
	Tag        []byte
	Ciphertext []byte
}

// String renders the token in its textual form, suitable for embedding as
// the value half of a KEY=VALUE line.
func (t *Token) String() string {
	return tokenPrefix +
		strconv.Itoa(t.Version) + tokenFieldSep +
		base64.StdEncoding.EncodeToString(t.IV) + tokenFieldSep +
		base64.StdEncoding.EncodeToString(t.Tag) + tokenFieldSep +
		base64.StdEncoding.EncodeToString(t.Ciphertext) + tokenSuffix
}

// Encrypt seals plaintext under key with AES-256-GCM and a fresh random
// 12-byte IV. The IV comes from a cryptographically secure source on every
// call and never repeats for a given key. The resulting token always carries
// the current version.
func Encrypt(plaintext, key []byte) (*Token, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", serrors.ErrInvalidKeyLength, KeySize, len(key))
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Seal appends the 16-byte tag to the ciphertext; the token stores the
	// two parts in separate fields.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - TagSize

	return &Token{
		Version:    TokenVersionCurrent,
		IV:         iv,
		Tag:        sealed[split:],
		Ciphertext: sealed[:split],
	}, nil
}

// Decrypt opens a token with key. A tag mismatch returns
// ErrAuthenticationFailed: wrong key and tampered ciphertext are
// indistinguishable by design. Structural defects in a hand-built token
// (bad IV or tag size, unknown version) are reported before any
// cryptographic work.
func Decrypt(t *Token, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", serrors.ErrInvalidKeyLength, KeySize, len(key))
	}
	if _, err := IterationsForVersion(t.Version); err != nil {
		return nil, err
	}
	if len(t.IV) != IVSize {
		return nil, fmt.Errorf("%w: IV must be %d bytes, got %d", serrors.ErrMalformedToken, IVSize, len(t.IV))
	}
	if len(t.Tag) != TagSize {
		return nil, fmt.Errorf("%w: tag must be %d bytes, got %d", serrors.ErrMalformedToken, TagSize, len(t.Tag))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := make([]byte, 0, len(t.Ciphertext)+len(t.Tag))
	sealed = append(sealed, t.Ciphertext...)
	sealed = append(sealed, t.Tag...)

	plaintext, err := gcm.Open(nil, t.IV, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serrors.ErrAuthenticationFailed, err)
	}

	return plaintext, nil
}

// ParseToken validates the textual form of a token and returns its parsed
// fields. Validation is purely structural; no key is needed and no
// decryption is attempted. Violations return ErrMalformedToken, except a
// structurally sound token with an unknown version, which returns
// ErrUnsupportedVersion so the caller knows an upgrade (not a repair) is
// required.
func ParseToken(s string) (*Token, error) {
	if !strings.HasPrefix(s, tokenPrefix) || !strings.HasSuffix(s, tokenSuffix) {
		return nil, fmt.Errorf("%w: missing sentinel", serrors.ErrMalformedToken)
	}

	inner := s[len(tokenPrefix) : len(s)-len(tokenSuffix)]
	fields := strings.Split(inner, tokenFieldSep)
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: expected 4 fields, got %d", serrors.ErrMalformedToken, len(fields))
	}

	version, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid version field %q", serrors.ErrMalformedToken, fields[0])
	}

	iv, err := base64.StdEncoding.DecodeString(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid IV encoding", serrors.ErrMalformedToken)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: IV must be %d bytes, got %d", serrors.ErrMalformedToken, IVSize, len(iv))
	}

	tag, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tag encoding", serrors.ErrMalformedToken)
	}
	if len(tag) != TagSize {
		return nil, fmt.Errorf("%w: tag must be %d bytes, got %d", serrors.ErrMalformedToken, TagSize, len(tag))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(fields[3])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ciphertext encoding", serrors.ErrMalformedToken)
	}

	if version != TokenVersionLegacy && version != TokenVersionCurrent {
		return nil, fmt.Errorf("%w: version %d (upgrade sealenv to read this value)", serrors.ErrUnsupportedVersion, version)
	}

	return &Token{
		Version:    version,
		IV:         iv,
		Tag:        tag,
		Ciphertext: ciphertext,
	}, nil
}

// HasTokenSentinel reports whether a value claims to be an encrypted token.
// A value with the sentinel that fails ParseToken is corruption, never
// plaintext.
func HasTokenSentinel(value string) bool {
	return strings.HasPrefix(value, tokenPrefix)
}

// IsEncrypted reports whether a value is a well-formed token. Recognition is
// structural only; no decryption is attempted.
func IsEncrypted(value string) bool {
	_, err := ParseToken(value)
	return err == nil
}
