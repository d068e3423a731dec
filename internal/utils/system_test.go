package utils

import (
	"testing"
)

func TestGetUsername(t *testing.T) {
	username, err := GetUsername()
	if err != nil {
		t.Fatalf("GetUsername failed: %v", err)
	}
	if username == "" {
		t.Fatal("Expected non-empty username")
	}
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"SimpleHandle", "alice", true},
		{"Email", "alice@example.com", true},
		{"Dotted", "alice.smith", true},
		{"Hyphenated", "alice-smith", true},
		{"Numbers", "alice123", true},
		{"Empty", "", false},
		{"Whitespace", "alice smith", false},
		{"LeadingDot", ".alice", false},
		{"Pipe", "alice|admin", false},
		{"Newline", "alice\n", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := IsValidUsername(tc.input)
			if result != tc.expected {
				t.Errorf("IsValidUsername(%q) = %v, expected %v", tc.input, result, tc.expected)
			}
		})
	}
}
