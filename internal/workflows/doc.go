// Package workflows provides high-level orchestration for sealenv commands.
//
// Workflows coordinate multiple operations across packages (configs,
// secrets, envelope, rotation, audit) to implement complete user-facing
// features. Each workflow handles a single command's business logic,
// independent of CLI concerns like flag parsing, spinners, and output
// formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Acquires credentials at the password boundary
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Loading configuration (user and project)
//   - Deriving and unlocking keys, and wiping them before return
//   - Performing the core operation
//   - Recording audit trail entries
//
// Keys are never cached in package state: each workflow derives (or
// unlocks) what it needs, passes it down the call path explicitly, and
// destroys it before returning.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.Encrypt(ctx, opts)
//	if errors.Is(err, serrors.ErrInvalidPassword) {
//	    // Distinct from ErrMalformedToken: retrying can still work.
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first
// parameter. This enables cancellation, timeouts, and passing
// request-scoped values. Key derivation itself is never cancelled
// mid-computation; a half-completed derivation has no usable output.
package workflows
