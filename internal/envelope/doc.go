// Package envelope implements the multi-user project-key envelope.
//
// A team project holds one random 32-byte project key. The envelope file
// (.sealenv/keyring.json) wraps that key once per authorized user, each
// wrap encrypted under a key derived from the user's own password and a
// per-user salt. Any user can independently unwrap the same project key
// with their password; no shared password ever exists.
//
// Every mutation rewrites the whole file atomically. An admin must prove
// their password (by unwrapping the project key) before any membership
// change is attempted.
package envelope
