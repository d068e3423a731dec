package rotation

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sealenv/sealenv/internal/configs"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/secrets"
)

// makeKeyref builds a current-version keyref with a fresh salt and derives
// its key for the password.
func makeKeyref(t *testing.T, password string) (*configs.Keyref, []byte) {
	t.Helper()
	salt, err := secrets.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	key, err := secrets.DeriveForVersion(password, salt, secrets.TokenVersionCurrent)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return configs.NewKeyref(salt, secrets.IterationsCurrent, secrets.TokenVersionCurrent), key
}

// writeEnvFile writes body to a fresh file under a temp dir.
func writeEnvFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func encryptValue(t *testing.T, plaintext string, key []byte) string {
	t.Helper()
	token, err := secrets.Encrypt([]byte(plaintext), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	return token.String()
}

func TestRotate_ReencryptsUnderNewPassword(t *testing.T) {
	dir := t.TempDir()
	keyref, oldKey := makeKeyref(t, "old1")

	body := "API_KEY=" + encryptValue(t, "abc123", oldKey) + "\nPORT=3000\n"
	path := writeEnvFile(t, dir, ".env", body)

	result, err := Rotate(Options{
		OldPassword: "old1",
		NewPassword: "new2",
		Files:       []string{path},
		Keyref:      keyref,
	})
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if result.ReencryptedCount != 1 {
		t.Errorf("Expected 1 re-encrypted value, got %d", result.ReencryptedCount)
	}
	if result.NewKeyref == nil {
		t.Fatal("Expected a new keyref")
	}
	if result.NewKeyref.Salt == keyref.Salt {
		t.Error("Expected the rotation to generate a fresh salt")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(raw)

	if !strings.Contains(content, "PORT=3000") {
		t.Error("Expected the plaintext entry to be untouched")
	}

	env := secrets.ParseEnvFile(content)
	entry, ok := env.Get("API_KEY")
	if !ok || !entry.Encrypted {
		t.Fatal("Expected API_KEY to remain an encrypted entry")
	}

	newSalt, err := result.NewKeyref.SaltBytes()
	if err != nil {
		t.Fatalf("SaltBytes failed: %v", err)
	}
	newKey, err := secrets.DeriveForVersion("new2", newSalt, result.NewKeyref.KDFVersion())
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	token, err := secrets.ParseToken(entry.Value)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	plaintext, err := secrets.Decrypt(token, newKey)
	if err != nil {
		t.Fatalf("Decrypt under new key failed: %v", err)
	}
	if string(plaintext) != "abc123" {
		t.Errorf("Expected abc123, got %q", plaintext)
	}

	// The old key must no longer open the value.
	if _, err := secrets.Decrypt(token, oldKey); !errors.Is(err, serrors.ErrAuthenticationFailed) {
		t.Errorf("Expected the old key to fail, got %v", err)
	}
}

func TestRotate_WrongOldPasswordIsZeroMutation(t *testing.T) {
	dir := t.TempDir()
	keyref, oldKey := makeKeyref(t, "old1")

	body := "API_KEY=" + encryptValue(t, "abc123", oldKey) + "\nPORT=3000\n"
	path := writeEnvFile(t, dir, ".env", body)

	_, err := Rotate(Options{
		OldPassword: "not-old1",
		NewPassword: "new2",
		Files:       []string{path},
		Keyref:      keyref,
	})
	if !errors.Is(err, serrors.ErrInvalidOldPassword) {
		t.Fatalf("Expected ErrInvalidOldPassword, got %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(raw, []byte(body)) {
		t.Error("Expected the file to be byte-for-byte unchanged after a failed rotation")
	}
}

func TestRotate_MalformedTokenAbortsAsCorruption(t *testing.T) {
	dir := t.TempDir()
	keyref, oldKey := makeKeyref(t, "old1")

	body := "GOOD=" + encryptValue(t, "fine", oldKey) + "\nBAD=ENC[2|notbase64!|x|y]\n"
	path := writeEnvFile(t, dir, ".env", body)

	_, err := Rotate(Options{
		OldPassword: "old1",
		NewPassword: "new2",
		Files:       []string{path},
		Keyref:      keyref,
	})
	if !errors.Is(err, serrors.ErrMalformedToken) {
		t.Fatalf("Expected ErrMalformedToken, got %v", err)
	}
	if errors.Is(err, serrors.ErrInvalidOldPassword) {
		t.Error("Corruption must never be reported as a password error")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(raw, []byte(body)) {
		t.Error("Expected zero mutation after a corruption abort")
	}
}

func TestRotate_ZeroEncryptedEntriesRotatesKeyrefOnly(t *testing.T) {
	dir := t.TempDir()
	keyref, _ := makeKeyref(t, "old1")

	body := "PORT=3000\nHOST=localhost\n"
	path := writeEnvFile(t, dir, ".env", body)

	result, err := Rotate(Options{
		OldPassword: "old1",
		NewPassword: "new2",
		Files:       []string{path},
		Keyref:      keyref,
	})
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if result.ReencryptedCount != 0 {
		t.Errorf("Expected no re-encryption, got %d", result.ReencryptedCount)
	}
	if len(result.RotatedFiles) != 0 {
		t.Errorf("Expected no file writes, got %v", result.RotatedFiles)
	}
	if result.NewKeyref == nil || result.NewKeyref.Salt == keyref.Salt {
		t.Error("Expected the keyref to rotate even with nothing to migrate")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(raw, []byte(body)) {
		t.Error("Expected the file to be untouched")
	}
}

func TestRotate_LegacyTokensMigrateToCurrent(t *testing.T) {
	dir := t.TempDir()

	// A project still carrying a version 1 keyref and a version 1 token.
	salt, err := secrets.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	keyref := configs.NewKeyref(salt, secrets.IterationsLegacy, secrets.TokenVersionLegacy)

	legacyKey, err := secrets.DeriveForVersion("old1", salt, secrets.TokenVersionLegacy)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	token, err := secrets.Encrypt([]byte("legacy-secret"), legacyKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	token.Version = secrets.TokenVersionLegacy

	path := writeEnvFile(t, dir, ".env", "OLD=" + token.String() + "\n")

	result, err := Rotate(Options{
		OldPassword: "old1",
		NewPassword: "new2",
		Files:       []string{path},
		Keyref:      keyref,
	})
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	env := secrets.ParseEnvFile(string(raw))
	entry, _ := env.Get("OLD")
	rotated, err := secrets.ParseToken(entry.Value)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if rotated.Version != secrets.TokenVersionCurrent {
		t.Errorf("Expected the rotated token to be version %d, got %d",
			secrets.TokenVersionCurrent, rotated.Version)
	}
	if result.NewKeyref.KDFVersion() != secrets.TokenVersionCurrent {
		t.Errorf("Expected the new keyref at version %d, got %d",
			secrets.TokenVersionCurrent, result.NewKeyref.KDFVersion())
	}
}

func TestCheckUnchanged_DetectsConcurrentWriter(t *testing.T) {
	dir := t.TempDir()
	keyref, oldKey := makeKeyref(t, "old1")

	body := "API_KEY=" + encryptValue(t, "abc123", oldKey) + "\n"
	path := writeEnvFile(t, dir, ".env", body)

	oldKeys := NewPasswordKeys("old1", mustSalt(t, keyref))
	defer oldKeys.Wipe()
	targets, err := readAndVerify([]string{path}, oldKeys, nil)
	if err != nil {
		t.Fatalf("readAndVerify failed: %v", err)
	}

	if err := checkUnchanged(targets); err != nil {
		t.Fatalf("Expected an untouched file to pass the check, got %v", err)
	}

	// Another writer changes the file between verification and commit.
	if err := os.WriteFile(path, []byte("API_KEY=changed-meanwhile\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	err = checkUnchanged(targets)
	if !errors.Is(err, serrors.ErrConcurrentModification) {
		t.Errorf("Expected ErrConcurrentModification, got %v", err)
	}
}

func TestVerify_ReportsFailuresAndMalformed(t *testing.T) {
	dir := t.TempDir()
	keyref, key := makeKeyref(t, "pw")
	_, otherKey := makeKeyref(t, "other")

	body := "GOOD=" + encryptValue(t, "v", key) + "\n" +
		"WRONGKEY=" + encryptValue(t, "v", otherKey) + "\n" +
		"BROKEN=ENC[2|short|x|y]\n" +
		"PLAIN=value\n"
	path := writeEnvFile(t, dir, ".env", body)

	keys := NewPasswordKeys("pw", mustSalt(t, keyref))
	defer keys.Wipe()

	reports, err := Verify([]string{path}, keys.ForVersion)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(reports))
	}

	r := reports[0]
	if r.Encrypted != 2 {
		t.Errorf("Expected 2 encrypted values, got %d", r.Encrypted)
	}
	if r.Plaintext != 1 {
		t.Errorf("Expected 1 plaintext value, got %d", r.Plaintext)
	}
	if len(r.Failed) != 1 || r.Failed[0] != "WRONGKEY" {
		t.Errorf("Expected WRONGKEY to fail authentication, got %v", r.Failed)
	}
	if len(r.Malformed) != 1 || r.Malformed[0] != "BROKEN" {
		t.Errorf("Expected BROKEN to be malformed, got %v", r.Malformed)
	}
}

func TestRotate_DuplicateKeysEachReencrypted(t *testing.T) {
	dir := t.TempDir()
	keyref, oldKey := makeKeyref(t, "old1")

	first := encryptValue(t, "first", oldKey)
	second := encryptValue(t, "second", oldKey)
	body := "A=" + first + "\nA=" + second + "\n"
	path := writeEnvFile(t, dir, ".env", body)

	result, err := Rotate(Options{
		OldPassword: "old1",
		NewPassword: "new2",
		Files:       []string{path},
		Keyref:      keyref,
	})
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if result.ReencryptedCount != 2 {
		t.Errorf("Expected 2 re-encrypted values, got %d", result.ReencryptedCount)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(raw)
	if strings.Contains(content, first) || strings.Contains(content, second) {
		t.Fatal("Expected both duplicate lines to carry fresh tokens")
	}

	newSalt, err := result.NewKeyref.SaltBytes()
	if err != nil {
		t.Fatalf("SaltBytes failed: %v", err)
	}
	newKey, err := secrets.DeriveForVersion("new2", newSalt, result.NewKeyref.KDFVersion())
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	env := secrets.ParseEnvFile(content)
	entries := env.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	want := []string{"first", "second"}
	for i, entry := range entries {
		token, err := secrets.ParseToken(entry.Value)
		if err != nil {
			t.Fatalf("ParseToken on line %d failed: %v", i, err)
		}
		plaintext, err := secrets.Decrypt(token, newKey)
		if err != nil {
			t.Fatalf("Line %d did not decrypt under the new key: %v", i, err)
		}
		if string(plaintext) != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], plaintext)
		}
	}
}

func TestRotate_MidCommitFailureIsRecoverable(t *testing.T) {
	dir := t.TempDir()
	keyref, oldKey := makeKeyref(t, "old1")

	body1 := "A=" + encryptValue(t, "alpha", oldKey) + "\n"
	body2 := "B=" + encryptValue(t, "beta", oldKey) + "\n"
	path1 := writeEnvFile(t, dir, "one.env", body1)
	path2 := writeEnvFile(t, dir, "two.env", body2)

	// The stage hook also breaks the second target, so the commit loop
	// fails after the first file has been rewritten.
	var staged *configs.Keyref
	stage := func(k *configs.Keyref) error {
		staged = k
		if err := os.Remove(path2); err != nil {
			return err
		}
		return os.Mkdir(path2, 0700)
	}

	_, err := Rotate(Options{
		OldPassword: "old1",
		NewPassword: "new2",
		Files:       []string{path1, path2},
		Keyref:      keyref,
		Stage:       stage,
	})
	if err == nil {
		t.Fatal("Expected the commit to fail on the second file")
	}
	if staged == nil {
		t.Fatal("Expected the keyref to be staged before the first write")
	}

	// The first file was already rewritten; its token must open under
	// the new password with the staged salt, or the value is lost.
	stagedSalt, err := staged.SaltBytes()
	if err != nil {
		t.Fatalf("SaltBytes failed: %v", err)
	}
	stagedKey, err := secrets.DeriveForVersion("new2", stagedSalt, staged.KDFVersion())
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	raw, err := os.ReadFile(path1)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	env := secrets.ParseEnvFile(string(raw))
	entry, ok := env.Get("A")
	if !ok {
		t.Fatal("Expected entry A in the rewritten file")
	}
	token, err := secrets.ParseToken(entry.Value)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	plaintext, err := secrets.Decrypt(token, stagedKey)
	if err != nil {
		t.Fatalf("Rewritten value did not decrypt under the staged keyref: %v", err)
	}
	if string(plaintext) != "alpha" {
		t.Errorf("Expected alpha, got %q", plaintext)
	}

	// Put the second target back and retry against the staged keyref.
	// The retry must accept the mixed state: one file under the staged
	// salt, one still under the old password.
	if err := os.Remove(path2); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := os.WriteFile(path2, []byte(body2), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	result, err := Rotate(Options{
		OldPassword:   "old1",
		NewPassword:   "new2",
		Files:         []string{path1, path2},
		Keyref:        keyref,
		PendingKeyref: staged,
		Stage:         func(k *configs.Keyref) error { return nil },
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if result.NewKeyref.Salt != staged.Salt {
		t.Error("Expected the retry to converge on the staged salt")
	}

	for path, want := range map[string]string{path1: "alpha", path2: "beta"} {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		env := secrets.ParseEnvFile(string(raw))
		for _, entry := range env.Entries() {
			token, err := secrets.ParseToken(entry.Value)
			if err != nil {
				t.Fatalf("ParseToken failed: %v", err)
			}
			plaintext, err := secrets.Decrypt(token, stagedKey)
			if err != nil {
				t.Fatalf("%s did not decrypt after the retry: %v", path, err)
			}
			if string(plaintext) != want {
				t.Errorf("%s: expected %q, got %q", path, want, plaintext)
			}
		}
	}
}

func mustSalt(t *testing.T, keyref *configs.Keyref) []byte {
	t.Helper()
	salt, err := keyref.SaltBytes()
	if err != nil {
		t.Fatalf("SaltBytes failed: %v", err)
	}
	return salt
}
