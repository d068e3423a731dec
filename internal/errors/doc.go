// Package errors provides typed error values for the sealenv application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Project errors: project state issues (ErrProjectNotInitialized, ErrNotTeamProject)
//   - Authentication errors: a password failed (ErrInvalidPassword, ErrInvalidOldPassword)
//   - Token errors: a value is corrupt or unreadable (ErrMalformedToken, ErrUnsupportedVersion)
//   - Keyring errors: envelope and user issues (ErrInvalidEnvelope, ErrUserNotFound)
//   - File errors: file system issues (ErrNoFilesFound, ErrFileNotFound)
//
// The distinction between ErrMalformedToken and the authentication errors
// is load-bearing: authentication failures can be fixed by retrying with
// the right password, malformed tokens cannot.
//
// # Usage
//
// Return errors from internal packages:
//
//	if projectPath == "" {
//	    return nil, errors.ErrProjectNotInitialized
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Encrypt(ctx, opts)
//	if errors.Is(err, serrors.ErrInvalidPassword) {
//	    // Show user-friendly message
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("%w: %s in %s", errors.ErrMalformedToken, key, path)
package errors
