package secrets

import (
	"strings"
)

// Entry is one KEY=VALUE pair from an env file.
type Entry struct {
	Key   string
	Value string

	// Encrypted marks a value that parsed as a well-formed token.
	Encrypted bool

	// TokenErr holds the structural error for a value that carries the
	// token sentinel but failed validation. Such a value is treated as
	// corruption, never as plaintext.
	TokenErr error

	idx int
}

// line is one physical line of the file. Entry lines point into entries;
// blank lines, comments, and lines without '=' are kept verbatim.
type line struct {
	raw      string
	entryIdx int
}

// EnvFile is the ordered contents of one KEY=VALUE env file. Serialization
// reproduces entries in their original order; comments and blank lines are
// preserved in place on a best-effort basis.
type EnvFile struct {
	lines           []line
	entries         []*Entry
	index           map[string]int
	modified        map[int]bool
	trailingNewline bool
}

// ParseEnvFile parses an env file body. Lines are split on newlines; blank
// lines and #-comments are skipped; a line with no '=' is inert, not an
// error. Remaining lines split on the first '=' with whitespace trimmed
// around the key only.
func ParseEnvFile(text string) *EnvFile {
	f := &EnvFile{
		index:           make(map[string]int),
		modified:        make(map[int]bool),
		trailingNewline: strings.HasSuffix(text, "\n"),
	}

	body := text
	if f.trailingNewline {
		body = strings.TrimSuffix(text, "\n")
	}
	if body == "" {
		return f
	}

	for _, raw := range strings.Split(body, "\n") {
		stripped := strings.TrimSpace(raw)
		if stripped == "" || strings.HasPrefix(stripped, "#") || !strings.Contains(raw, "=") {
			f.lines = append(f.lines, line{raw: raw, entryIdx: -1})
			continue
		}

		eq := strings.Index(raw, "=")
		key := strings.TrimSpace(raw[:eq])
		value := raw[eq+1:]

		entry := &Entry{Key: key, Value: value, idx: len(f.entries)}
		if HasTokenSentinel(value) {
			if _, err := ParseToken(value); err != nil {
				entry.TokenErr = err
			} else {
				entry.Encrypted = true
			}
		}

		f.entries = append(f.entries, entry)
		f.index[key] = len(f.entries) - 1
		f.lines = append(f.lines, line{raw: raw, entryIdx: len(f.entries) - 1})
	}

	return f
}

// Entries returns the file's KEY=VALUE entries in original order.
func (f *EnvFile) Entries() []*Entry {
	return f.entries
}

// Get returns the last entry for key, if present. Later duplicates win,
// matching how the file would be consumed as an environment.
func (f *EnvFile) Get(key string) (*Entry, bool) {
	i, ok := f.index[key]
	if !ok {
		return nil, false
	}
	return f.entries[i], true
}

// SetEntry replaces the value of one specific entry. Duplicate keys each
// keep their own line, so per-entry updates must go through the entry
// itself, never through a key lookup. The entry's encryption tagging is
// recomputed.
func (f *EnvFile) SetEntry(entry *Entry, value string) {
	entry.Value = value
	entry.Encrypted = false
	entry.TokenErr = nil
	if HasTokenSentinel(value) {
		if _, err := ParseToken(value); err != nil {
			entry.TokenErr = err
		} else {
			entry.Encrypted = true
		}
	}
	f.modified[entry.idx] = true
}

// Set replaces the value for key, or appends a new entry line when the key
// is not present. With duplicate keys the last entry is updated, matching
// how the file would be consumed as an environment.
func (f *EnvFile) Set(key, value string) {
	if i, ok := f.index[key]; ok {
		f.SetEntry(f.entries[i], value)
		return
	}

	entry := &Entry{Key: key, Value: value, Encrypted: IsEncrypted(value), idx: len(f.entries)}
	f.entries = append(f.entries, entry)
	f.index[key] = len(f.entries) - 1
	f.lines = append(f.lines, line{raw: "", entryIdx: len(f.entries) - 1})
	f.modified[entry.idx] = true
	if len(f.lines) > 0 {
		f.trailingNewline = true
	}
}

// Serialize renders the file back to text. Untouched entry lines are
// reproduced verbatim; modified entries are rendered as key=value.
func (f *EnvFile) Serialize() string {
	var b strings.Builder
	for i, l := range f.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		if l.entryIdx < 0 {
			b.WriteString(l.raw)
			continue
		}
		entry := f.entries[l.entryIdx]
		if f.modified[l.entryIdx] || l.raw == "" {
			b.WriteString(entry.Key)
			b.WriteString("=")
			b.WriteString(entry.Value)
		} else {
			b.WriteString(l.raw)
		}
	}
	if f.trailingNewline && len(f.lines) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// EncryptedEntries returns the entries holding well-formed tokens.
func (f *EnvFile) EncryptedEntries() []*Entry {
	var out []*Entry
	for _, e := range f.entries {
		if e.Encrypted {
			out = append(out, e)
		}
	}
	return out
}

// MalformedEntries returns the entries whose values carry the token
// sentinel but failed structural validation.
func (f *EnvFile) MalformedEntries() []*Entry {
	var out []*Entry
	for _, e := range f.entries {
		if e.TokenErr != nil {
			out = append(out, e)
		}
	}
	return out
}
