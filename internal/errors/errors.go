package errors

import "errors"

// Project state errors indicate issues with project configuration or initialization.
var (
	// ErrProjectNotInitialized indicates the project has not been set up with sealenv.
	ErrProjectNotInitialized = errors.New("project has not been initialized")

	// ErrProjectAlreadyInitialized indicates the project has already been set up with sealenv.
	ErrProjectAlreadyInitialized = errors.New("project has already been initialized")

	// ErrInvalidProjectConfig indicates the project configuration is malformed or corrupt.
	ErrInvalidProjectConfig = errors.New("project configuration is invalid")

	// ErrNotTeamProject indicates a team-only operation was run on a standalone project.
	ErrNotTeamProject = errors.New("project is not initialized in team mode")
)

// Authentication errors indicate a password did not verify. At the
// cryptographic layer they are all the same AEAD tag mismatch; callers
// surface them separately so a user knows which password to retry.
var (
	// ErrAuthenticationFailed indicates an authentication tag did not verify:
	// wrong key or tampered ciphertext.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidPassword indicates the supplied password could not unlock the project.
	ErrInvalidPassword = errors.New("password incorrect")

	// ErrInvalidOldPassword indicates the current password given to a rotation was wrong.
	ErrInvalidOldPassword = errors.New("current password incorrect")
)

// Format errors indicate structural corruption, never an authentication problem.
var (
	// ErrMalformedToken indicates an encrypted value failed structural validation.
	ErrMalformedToken = errors.New("malformed encrypted value")

	// ErrUnsupportedVersion indicates an encrypted value uses an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported encryption version")

	// ErrInvalidEnvelope indicates the keyring file is malformed or corrupt.
	ErrInvalidEnvelope = errors.New("keyring file is invalid")
)

// User errors indicate issues with envelope membership operations.
var (
	// ErrUserNotFound indicates the specified user could not be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates the username is already registered.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrCannotRevokeLastAdmin indicates revoking the target would leave no admin.
	ErrCannotRevokeLastAdmin = errors.New("cannot revoke the last admin")
)

// Rotation errors indicate a password rotation could not proceed.
var (
	// ErrConcurrentModification indicates a rotation target changed between
	// verification and write.
	ErrConcurrentModification = errors.New("file modified during rotation")
)

// Parameter errors indicate invalid cryptographic configuration.
var (
	// ErrInvalidKDFParams indicates key derivation was configured with unusable parameters.
	ErrInvalidKDFParams = errors.New("invalid key derivation parameters")

	// ErrInvalidKeyLength indicates a symmetric key has an unexpected length.
	ErrInvalidKeyLength = errors.New("invalid symmetric key length")
)

// File errors indicate issues with file discovery or access.
var (
	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = errors.New("file not found")
)
