package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sealenv/sealenv/internal/configs"
)

// Entry represents a single audit log entry.
type Entry struct {
	ID        string `json:"id"`      // UUID of this entry.
	Timestamp string `json:"ts"`      // RFC3339 with microseconds.
	User      string `json:"user"`    // Username performing the action.
	Action    string `json:"action"`  // Action name.
	Project   string `json:"project"` // Project name the action touched.

	// Optional fields depending on action.
	Files      []string `json:"files,omitempty"`       // For encrypt/decrypt/rotate.
	TargetUser string   `json:"target_user,omitempty"` // For register/revoke.
	Role       string   `json:"role,omitempty"`        // For register.
	Count      int      `json:"count,omitempty"`       // Values touched, for encrypt/decrypt/rotate.
	Mode       string   `json:"mode,omitempty"`        // For init (standalone/team).
	Detail     string   `json:"detail,omitempty"`      // Free-form context.
}

// Actions recorded in the log.
const (
	ActionInit     = "init"
	ActionEncrypt  = "encrypt"
	ActionDecrypt  = "decrypt"
	ActionRotate   = "rotate"
	ActionRegister = "register"
	ActionRevoke   = "revoke"
	ActionUnlock   = "unlock"
	ActionPurge    = "purge"
	ActionExec     = "exec"
)

// Log appends an entry to the audit log.
// If logging fails, the entry is dropped: operations must not fail just
// because audit logging failed.
func Log(entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	logPath := LogPath()
	if logPath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// New is a convenience constructor that populates the acting user and
// project from the loaded settings.
func New(action string) Entry {
	entry := Entry{
		Action:  action,
		Project: configs.ProjectSealenvSettings.ProjectName,
	}

	userConfig, err := configs.LoadUserConfig()
	if err == nil && userConfig.User.Username != "" {
		entry.User = userConfig.User.Username
	} else {
		entry.User = configs.UserSealenvSettings.Username
	}

	return entry
}

// LogPath returns the path to the user-level audit log file.
func LogPath() string {
	dataPath := configs.UserSealenvSettings.UserDataPath
	if dataPath == "" {
		return ""
	}
	return filepath.Join(dataPath, "audit.jsonl")
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func ReadEntries() ([]Entry, error) {
	logPath := LogPath()
	if logPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Skip malformed entries.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
