package secrets

import (
	"bytes"
	"errors"
	"testing"

	serrors "github.com/sealenv/sealenv/internal/errors"
)

func TestDerive_Deterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x5a}, SaltSize)

	key1, err := Derive("correct horse battery staple", salt, 1000, KeySize)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	key2, err := Derive("correct horse battery staple", salt, 1000, KeySize)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	if !bytes.Equal(key1, key2) {
		t.Error("Expected identical keys for identical inputs")
	}
	if len(key1) != KeySize {
		t.Errorf("Expected %d-byte key, got %d", KeySize, len(key1))
	}
}

func TestDerive_SaltSensitivity(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Fatal("Two generated salts were identical")
	}

	key1, err := Derive("hunter2", salt1, 1000, KeySize)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	key2, err := Derive("hunter2", salt2, 1000, KeySize)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	if bytes.Equal(key1, key2) {
		t.Error("Expected different keys for different salts")
	}
}

func TestDerive_PasswordSensitivity(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, SaltSize)

	key1, err := Derive("password-one", salt, 1000, KeySize)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	key2, err := Derive("password-two", salt, 1000, KeySize)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	if bytes.Equal(key1, key2) {
		t.Error("Expected different keys for different passwords")
	}
}

func TestDerive_InvalidParams(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, SaltSize)

	tests := []struct {
		name       string
		iterations int
		keyLen     int
	}{
		{"ZeroIterations", 0, KeySize},
		{"NegativeIterations", -1, KeySize},
		{"ZeroKeyLength", 1000, 0},
		{"NegativeKeyLength", 1000, -8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Derive("pw", salt, tc.iterations, tc.keyLen)
			if !errors.Is(err, serrors.ErrInvalidKDFParams) {
				t.Errorf("Expected ErrInvalidKDFParams, got %v", err)
			}
		})
	}
}

func TestIterationsForVersion(t *testing.T) {
	tests := []struct {
		name       string
		version    int
		iterations int
		wantErr    bool
	}{
		{"Legacy", TokenVersionLegacy, IterationsLegacy, false},
		{"Current", TokenVersionCurrent, IterationsCurrent, false},
		{"Zero", 0, 0, true},
		{"Future", 3, 0, true},
		{"Negative", -1, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IterationsForVersion(tc.version)
			if tc.wantErr {
				if !errors.Is(err, serrors.ErrUnsupportedVersion) {
					t.Errorf("Expected ErrUnsupportedVersion, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("IterationsForVersion failed: %v", err)
			}
			if got != tc.iterations {
				t.Errorf("Expected %d iterations, got %d", tc.iterations, got)
			}
		})
	}
}

func TestDeriveForVersion_VersionsDiffer(t *testing.T) {
	salt := bytes.Repeat([]byte{0x2b}, SaltSize)

	legacy, err := DeriveForVersion("same password", salt, TokenVersionLegacy)
	if err != nil {
		t.Fatalf("DeriveForVersion(legacy) failed: %v", err)
	}
	current, err := DeriveForVersion("same password", salt, TokenVersionCurrent)
	if err != nil {
		t.Fatalf("DeriveForVersion(current) failed: %v", err)
	}

	if bytes.Equal(legacy, current) {
		t.Error("Expected different keys for different versions of the same password")
	}
}

func TestGenerateProjectKey(t *testing.T) {
	key1, err := GenerateProjectKey()
	if err != nil {
		t.Fatalf("GenerateProjectKey failed: %v", err)
	}
	key2, err := GenerateProjectKey()
	if err != nil {
		t.Fatalf("GenerateProjectKey failed: %v", err)
	}

	if len(key1) != KeySize {
		t.Errorf("Expected %d-byte key, got %d", KeySize, len(key1))
	}
	if bytes.Equal(key1, key2) {
		t.Error("Two generated project keys were identical")
	}
}
