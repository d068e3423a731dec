package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	serrors "github.com/sealenv/sealenv/internal/errors"
)

// Directories never searched for env files.
var skipDirs = map[string]bool{
	".sealenv":     true,
	".git":         true,
	"node_modules": true,
}

// ResolveEnvFiles takes user-provided paths/globs and returns matching env
// files. If patterns is empty, returns nil (caller should fall back to
// FindEnvFiles over the project root). Results are deduplicated in
// first-seen order.
func ResolveEnvFiles(patterns []string, projectPath string) ([]string, error) {
	if len(patterns) == 0 {
		// No patterns provided, caller should use default behavior.
		return nil, nil
	}

	var files []string
	seen := make(map[string]bool) // Deduplicate.

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, projectPath)
		if err != nil {
			return nil, err
		}

		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", serrors.ErrNoFilesFound, strings.Join(patterns, ", "))
	}

	return files, nil
}

func resolvePattern(pattern string, projectPath string) ([]string, error) {
	// Convert relative patterns to absolute paths based on project path.
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(projectPath, pattern)
	}

	// Check if it's a directory.
	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return FindEnvFiles(absPattern)
	}

	// Check if it contains glob characters.
	if strings.ContainsAny(pattern, "*?[") {
		return expandGlob(pattern, projectPath)
	}

	// Treat as literal file path.
	if _, err := os.Stat(absPattern); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", serrors.ErrFileNotFound, pattern)
	}

	// An explicitly named file is taken as-is even without an .env name;
	// the user knows their layout better than the predicate does.
	return []string{absPattern}, nil
}

func expandGlob(pattern string, projectPath string) ([]string, error) {
	// Use doublestar for ** support.
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(projectPath, pattern)
	}

	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	// Filter to regular env files outside the skipped directories.
	var filtered []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}

		if isInSkippedDir(m) {
			continue
		}

		if IsEnvFile(m) {
			filtered = append(filtered, m)
		}
	}

	return filtered, nil
}

// FindEnvFiles walks dir and returns every env file beneath it, skipping
// .sealenv, .git, and node_modules.
func FindEnvFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip irregular files.
		if !d.Type().IsRegular() {
			return nil
		}

		if IsEnvFile(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// IsEnvFile reports whether a path names an env file (.env, .env.local,
// config.env, and friends).
func IsEnvFile(path string) bool {
	base := filepath.Base(path)
	return strings.Contains(base, ".env")
}

func isInSkippedDir(path string) bool {
	// Check if any component of the path is a skipped directory.
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, part := range parts {
		if skipDirs[part] {
			return true
		}
	}
	return false
}

// EnsureProjectDirs creates the project's .sealenv directory when missing.
func EnsureProjectDirs(projectPath string) error {
	sealenvDir := filepath.Join(projectPath, ".sealenv")

	if err := os.MkdirAll(sealenvDir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", sealenvDir, err)
	}

	return nil
}
