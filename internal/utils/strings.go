package utils

import (
	"regexp"
	"strings"

	"github.com/sealenv/sealenv/internal/ui"
)

// usernameRegex allows the names people actually use: plain handles,
// emails, and dotted or hyphenated identifiers. No whitespace, no pipes.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._@+\-]*$`)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// IsValidUsername checks whether a username is acceptable for a keyring entry.
func IsValidUsername(name string) bool {
	if name == "" || len(name) > 128 {
		return false
	}
	return usernameRegex.MatchString(name)
}
