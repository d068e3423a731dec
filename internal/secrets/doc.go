// Package secrets provides cryptographic operations for sealenv.
//
// This package implements the core encoding for secret values: password key
// derivation, the authenticated token format embedded in env files, and the
// ordered env-file model that carries those tokens.
//
// # Token Format
//
// An encrypted value is a self-describing text token:
//
//	ENC[version|iv_b64|tag_b64|ct_b64]
//
// The value half of a KEY=VALUE line holds the whole token, so encrypted
// and plaintext values coexist in one ordinary env file. Encryption is
// AES-256-GCM with a fresh random 12-byte IV per value and a 16-byte
// authentication tag. Re-encrypting the same value always produces different
// output.
//
// # Versions
//
// The version field records the key derivation parameters in force when the
// value was encrypted:
//
//	1: PBKDF2-HMAC-SHA256, 100 000 iterations (legacy, read-only)
//	2: PBKDF2-HMAC-SHA256, 310 000 iterations (current)
//
// New encryptions always produce version 2. Version 1 values remain
// decryptable indefinitely; any other version is rejected as unsupported.
//
// # Failure Separation
//
// Structural defects (bad sentinel, field count, base64, IV or tag size)
// are malformed-token errors and mean corruption. A tag mismatch is an
// authentication failure and means a wrong key or tampered data. The two
// are never conflated: the first cannot be fixed by retyping a password,
// the second usually can.
//
// # Env Files
//
// ParseEnvFile keeps every physical line in order, tags well-formed tokens
// as encrypted, and flags sentinel-carrying values that fail validation.
// Serialization reproduces untouched lines verbatim, so encrypting one
// value leaves the rest of the file byte-identical.
package secrets
