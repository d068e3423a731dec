package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	serrors "github.com/sealenv/sealenv/internal/errors"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, KeySize)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(0x42)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"Empty", []byte{}},
		{"SingleByte", []byte{0x00}},
		{"Short", []byte("abc123")},
		{"Large", bytes.Repeat([]byte("0123456789"), 1000)},
		{"NonASCII", []byte("pässwörd-秘密-🔑")},
		{"BinaryWithNulls", []byte{0x00, 0xff, 0x00, 0xfe, 0x01}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token, err := Encrypt(tc.plaintext, key)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}

			if token.Version != TokenVersionCurrent {
				t.Errorf("Expected version %d, got %d", TokenVersionCurrent, token.Version)
			}

			got, err := Decrypt(token, key)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}

			if !bytes.Equal(got, tc.plaintext) {
				t.Errorf("Round trip mismatch: got %q, want %q", got, tc.plaintext)
			}
		})
	}
}

func TestEncryptDecrypt_TextualRoundTrip(t *testing.T) {
	key := testKey(0x42)

	token, err := Encrypt([]byte("abc123"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	text := token.String()
	if !strings.HasPrefix(text, "ENC[2|") {
		t.Errorf("Expected ENC[2|... form, got %q", text)
	}

	parsed, err := ParseToken(text)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}

	got, err := Decrypt(parsed, key)
	if err != nil {
		t.Fatalf("Decrypt after parse failed: %v", err)
	}
	if string(got) != "abc123" {
		t.Errorf("Expected abc123, got %q", got)
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	key := testKey(0x42)

	token1, err := Encrypt([]byte("same plaintext"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	token2, err := Encrypt([]byte("same plaintext"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if bytes.Equal(token1.IV, token2.IV) {
		t.Error("Two encryptions used the same IV")
	}
	if bytes.Equal(token1.Ciphertext, token2.Ciphertext) && len(token1.Ciphertext) > 0 {
		t.Error("Two encryptions produced identical ciphertext")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	token, err := Encrypt([]byte("secret"), testKey(0x01))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	_, err = Decrypt(token, testKey(0x02))
	if !errors.Is(err, serrors.ErrAuthenticationFailed) {
		t.Errorf("Expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	key := testKey(0x42)

	// Flip a single bit in every position of the ciphertext and tag; each
	// flip must fail authentication, never return corrupted plaintext.
	base, err := Encrypt([]byte("abc123"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	for i := range base.Ciphertext {
		tampered := &Token{
			Version:    base.Version,
			IV:         base.IV,
			Tag:        base.Tag,
			Ciphertext: append([]byte{}, base.Ciphertext...),
		}
		tampered.Ciphertext[i] ^= 0x01

		got, err := Decrypt(tampered, key)
		if !errors.Is(err, serrors.ErrAuthenticationFailed) {
			t.Fatalf("Ciphertext bit flip at %d: expected ErrAuthenticationFailed, got %v (plaintext %q)", i, err, got)
		}
	}

	for i := range base.Tag {
		tampered := &Token{
			Version:    base.Version,
			IV:         base.IV,
			Tag:        append([]byte{}, base.Tag...),
			Ciphertext: base.Ciphertext,
		}
		tampered.Tag[i] ^= 0x80

		got, err := Decrypt(tampered, key)
		if !errors.Is(err, serrors.ErrAuthenticationFailed) {
			t.Fatalf("Tag bit flip at %d: expected ErrAuthenticationFailed, got %v (plaintext %q)", i, err, got)
		}
	}
}

func TestDecrypt_LegacyVersion(t *testing.T) {
	key := testKey(0x42)

	// The codec is identical across versions; only the derivation
	// parameters differ. A v1 token must still open.
	token, err := Encrypt([]byte("legacy value"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	token.Version = TokenVersionLegacy

	got, err := Decrypt(token, key)
	if err != nil {
		t.Fatalf("Decrypt of v1 token failed: %v", err)
	}
	if string(got) != "legacy value" {
		t.Errorf("Expected legacy value, got %q", got)
	}
}

func TestDecrypt_UnsupportedVersion(t *testing.T) {
	key := testKey(0x42)

	token, err := Encrypt([]byte("x"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	token.Version = 5

	_, err = Decrypt(token, key)
	if !errors.Is(err, serrors.ErrUnsupportedVersion) {
		t.Errorf("Expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestDecrypt_InvalidKeyLength(t *testing.T) {
	token, err := Encrypt([]byte("x"), testKey(0x42))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	_, err = Decrypt(token, []byte("short"))
	if !errors.Is(err, serrors.ErrInvalidKeyLength) {
		t.Errorf("Expected ErrInvalidKeyLength, got %v", err)
	}

	_, err = Encrypt([]byte("x"), []byte("short"))
	if !errors.Is(err, serrors.ErrInvalidKeyLength) {
		t.Errorf("Expected ErrInvalidKeyLength, got %v", err)
	}
}

func validTokenText(t *testing.T) string {
	t.Helper()
	token, err := Encrypt([]byte("abc123"), testKey(0x42))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	return token.String()
}

func TestParseToken_Malformed(t *testing.T) {
	iv := base64.StdEncoding.EncodeToString(make([]byte, IVSize))
	tag := base64.StdEncoding.EncodeToString(make([]byte, TagSize))
	shortIV := base64.StdEncoding.EncodeToString(make([]byte, 8))
	shortTag := base64.StdEncoding.EncodeToString(make([]byte, 4))

	tests := []struct {
		name  string
		input string
	}{
		{"NoSentinel", "2|" + iv + "|" + tag + "|QQ=="},
		{"WrongSentinel", "SEC[2|" + iv + "|" + tag + "|QQ==]"},
		{"MissingClosingBracket", "ENC[2|" + iv + "|" + tag + "|QQ=="},
		{"ThreeFields", "ENC[2|" + iv + "|" + tag + "]"},
		{"FiveFields", "ENC[2|" + iv + "|" + tag + "|QQ==|extra]"},
		{"NonIntegerVersion", "ENC[two|" + iv + "|" + tag + "|QQ==]"},
		{"EmptyVersion", "ENC[|" + iv + "|" + tag + "|QQ==]"},
		{"BadBase64IV", "ENC[2|!!!|" + tag + "|QQ==]"},
		{"BadBase64Tag", "ENC[2|" + iv + "|!!!|QQ==]"},
		{"BadBase64Ciphertext", "ENC[2|" + iv + "|" + tag + "|!!!]"},
		{"ShortIV", "ENC[2|" + shortIV + "|" + tag + "|QQ==]"},
		{"ShortTag", "ENC[2|" + iv + "|" + shortTag + "|QQ==]"},
		{"EmptyString", ""},
		{"PlainValue", "just-a-password"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(tc.input)
			if !errors.Is(err, serrors.ErrMalformedToken) {
				t.Errorf("ParseToken(%q): expected ErrMalformedToken, got %v", tc.input, err)
			}
			// A structural failure must never read as an authentication failure.
			if errors.Is(err, serrors.ErrAuthenticationFailed) {
				t.Errorf("ParseToken(%q): structural error conflated with authentication", tc.input)
			}
		})
	}
}

func TestParseToken_UnsupportedVersion(t *testing.T) {
	iv := base64.StdEncoding.EncodeToString(make([]byte, IVSize))
	tag := base64.StdEncoding.EncodeToString(make([]byte, TagSize))

	tests := []struct {
		name    string
		version string
	}{
		{"Zero", "0"},
		{"Three", "3"},
		{"Negative", "-1"},
		{"Huge", "999"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := "ENC[" + tc.version + "|" + iv + "|" + tag + "|QQ==]"
			_, err := ParseToken(input)
			if !errors.Is(err, serrors.ErrUnsupportedVersion) {
				t.Errorf("Expected ErrUnsupportedVersion, got %v", err)
			}
		})
	}
}

func TestParseToken_EmptyCiphertextIsValid(t *testing.T) {
	key := testKey(0x42)

	// The encryption of the empty string has an empty ciphertext field and
	// a real tag. It must parse and round-trip.
	token, err := Encrypt([]byte{}, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(token.Ciphertext) != 0 {
		t.Fatalf("Expected empty ciphertext for empty plaintext, got %d bytes", len(token.Ciphertext))
	}

	parsed, err := ParseToken(token.String())
	if err != nil {
		t.Fatalf("ParseToken failed on empty-ciphertext token: %v", err)
	}

	got, err := Decrypt(parsed, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty plaintext, got %q", got)
	}
}

func TestIsEncrypted(t *testing.T) {
	valid := validTokenText(t)

	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"ValidToken", valid, true},
		{"Plaintext", "3000", false},
		{"Empty", "", false},
		{"SentinelOnly", "ENC[", false},
		{"TruncatedToken", valid[:len(valid)-1], false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsEncrypted(tc.value); got != tc.expected {
				t.Errorf("IsEncrypted(%q) = %v, want %v", tc.value, got, tc.expected)
			}
		})
	}
}

func TestHasTokenSentinel(t *testing.T) {
	if !HasTokenSentinel("ENC[garbage") {
		t.Error("Expected sentinel recognition for ENC[ prefix")
	}
	if HasTokenSentinel("3000") {
		t.Error("Did not expect sentinel recognition for plaintext")
	}
}
