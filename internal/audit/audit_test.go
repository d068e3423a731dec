package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sealenv/sealenv/internal/configs"
)

// withTempDataDir points the user data path at a temp dir for one test.
func withTempDataDir(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	originalSettings := configs.UserSealenvSettings
	configs.UserSealenvSettings = &configs.UserSettings{
		UserConfigsPath: filepath.Join(tempDir, "config"),
		UserDataPath:    filepath.Join(tempDir, "data"),
		Username:        "testuser",
	}
	t.Cleanup(func() {
		configs.UserSealenvSettings = originalSettings
	})

	return tempDir
}

func TestLog_CreatesFile(t *testing.T) {
	withTempDataDir(t)

	Log(Entry{User: "alice", Action: ActionEncrypt, Files: []string{".env"}})

	if _, err := os.Stat(LogPath()); os.IsNotExist(err) {
		t.Fatalf("Audit log file was not created")
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	withTempDataDir(t)

	Log(Entry{User: "alice", Action: ActionEncrypt})
	Log(Entry{User: "bob", Action: ActionDecrypt})
	Log(Entry{User: "carol", Action: ActionRegister})

	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("Expected 3 lines, got %d", len(lines))
	}
}

func TestLog_ValidJSON(t *testing.T) {
	withTempDataDir(t)

	Log(Entry{
		User:       "alice",
		Action:     ActionRegister,
		Project:    "demo",
		TargetUser: "bob",
		Role:       "developer",
	})

	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	var parsed Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &parsed); err != nil {
		t.Fatalf("Entry is not valid JSON: %v", err)
	}

	if parsed.User != "alice" {
		t.Errorf("Expected user alice, got %s", parsed.User)
	}
	if parsed.Action != ActionRegister {
		t.Errorf("Expected action register, got %s", parsed.Action)
	}
	if parsed.TargetUser != "bob" {
		t.Errorf("Expected target user bob, got %s", parsed.TargetUser)
	}
	if parsed.ID == "" {
		t.Error("Expected an auto-assigned entry ID")
	}
}

func TestLog_TimestampFormat(t *testing.T) {
	withTempDataDir(t)

	Log(Entry{User: "alice", Action: ActionEncrypt})

	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	var parsed Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &parsed); err != nil {
		t.Fatalf("Entry is not valid JSON: %v", err)
	}

	// Format: 2006-01-02T15:04:05.000000Z.
	if parsed.Timestamp == "" {
		t.Errorf("Timestamp should be auto-set")
	}
	if !strings.HasSuffix(parsed.Timestamp, "Z") {
		t.Errorf("Timestamp should end with Z, got %s", parsed.Timestamp)
	}
	if !strings.Contains(parsed.Timestamp, ".") {
		t.Errorf("Timestamp should contain microseconds, got %s", parsed.Timestamp)
	}
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	withTempDataDir(t)

	Log(Entry{User: "alice", Action: ActionRotate})

	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	line := strings.TrimSpace(string(data))

	if strings.Contains(line, `"files"`) {
		t.Errorf("Empty files field should be omitted")
	}
	if strings.Contains(line, `"target_user"`) {
		t.Errorf("Empty target_user field should be omitted")
	}
	if strings.Contains(line, `"mode"`) {
		t.Errorf("Empty mode field should be omitted")
	}
}

func TestLog_NoDataPath(t *testing.T) {
	originalSettings := configs.UserSealenvSettings
	configs.UserSealenvSettings = &configs.UserSettings{UserDataPath: ""}
	defer func() {
		configs.UserSealenvSettings = originalSettings
	}()

	// Log should not panic or error.
	Log(Entry{User: "alice", Action: ActionEncrypt}) // Should silently do nothing.
}

func TestParseEntries_ValidData(t *testing.T) {
	data := []byte(`{"ts":"2026-01-15T10:30:00.123456Z","user":"alice","action":"encrypt"}
{"ts":"2026-01-15T10:35:00.456789Z","user":"bob","action":"decrypt"}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}

	if entries[0].User != "alice" {
		t.Errorf("Expected first user alice, got %s", entries[0].User)
	}
	if entries[1].User != "bob" {
		t.Errorf("Expected second user bob, got %s", entries[1].User)
	}
}

func TestParseEntries_SkipsMalformedLines(t *testing.T) {
	data := []byte(`{"ts":"2026-01-15T10:30:00.123456Z","user":"alice","action":"encrypt"}
this is not valid json
{"ts":"2026-01-15T10:35:00.456789Z","user":"bob","action":"decrypt"}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("Expected 2 valid entries (malformed should be skipped), got %d", len(entries))
	}
}

func TestParseEntries_EmptyData(t *testing.T) {
	entries, err := ParseEntries([]byte{})
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if entries != nil {
		t.Errorf("Expected nil entries for empty data, got %v", entries)
	}
}

func TestLogPath(t *testing.T) {
	tempDir := withTempDataDir(t)

	expected := filepath.Join(tempDir, "data", "audit.jsonl")
	if got := LogPath(); got != expected {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}
