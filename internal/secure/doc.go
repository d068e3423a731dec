// Package secure holds key material in memguard-protected memory.
//
// Derived keys and the project key live in encrypted enclaves while a
// workflow runs, so plaintext key bytes are never left sitting in ordinary
// heap memory where they could be swapped out or linger after use. Callers
// open a buffer for the brief window a cryptographic call needs the raw
// bytes and destroy it immediately after.
package secure
