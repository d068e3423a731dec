package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sealenv/sealenv/internal/audit"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	// Limit is the maximum number of entries to return, most recent
	// last. 0 means no limit.
	Limit int

	// Action filters entries by action name.
	Action string

	// Project filters entries to one project; the audit log is
	// user-level and mixes every project's history.
	Project string
}

// LogResult contains the filtered audit entries.
type LogResult struct {
	// Entries are the matching entries in chronological order.
	Entries []audit.Entry

	// TotalEntries is the count before filtering.
	TotalEntries int
}

// Log reads and filters the user-level audit log.
func Log(ctx context.Context, opts LogOptions) (*LogResult, error) {
	entries, err := audit.ReadEntries()
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	result := &LogResult{TotalEntries: len(entries)}

	filtered := entries
	if opts.Action != "" {
		filtered = filterByAction(filtered, opts.Action)
	}
	if opts.Project != "" {
		filtered = filterByProject(filtered, opts.Project)
	}

	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[len(filtered)-opts.Limit:]
	}

	result.Entries = filtered
	return result, nil
}

func filterByAction(entries []audit.Entry, action string) []audit.Entry {
	var out []audit.Entry
	for _, e := range entries {
		if strings.EqualFold(e.Action, action) {
			out = append(out, e)
		}
	}
	return out
}

func filterByProject(entries []audit.Entry, project string) []audit.Entry {
	var out []audit.Entry
	for _, e := range entries {
		if e.Project == project {
			out = append(out, e)
		}
	}
	return out
}

// FormatTimestamp renders an entry timestamp for display, falling back to
// the raw string when it doesn't parse.
func FormatTimestamp(ts string) string {
	t, err := time.Parse("2006-01-02T15:04:05.000000Z", ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}
