// Package utils provides shared utility functions for the sealenv application.
//
// This package contains general-purpose helpers used across multiple packages.
// Functions are organized into logical groups:
//
// # Filesystem Utilities
//
// Functions for working with the filesystem and project structure:
//   - FindProjectRoot: walks up directories to find .sealenv
//   - FormatPaths: formats file paths for human-readable output
//
// # System Utilities
//
// Functions for interacting with the operating system:
//   - GetUsername: returns the current system username
//
// # Project Utilities
//
// Functions for working with sealenv projects:
//   - GetProjectName: returns the current project's directory name
//
// # String Utilities
//
// Functions for string validation and formatting:
//   - IsValidUsername: validates keyring usernames
//
// # I/O Utilities
//
// Functions for writing files safely:
//   - WriteFileAtomic: whole-file replace via temp file and rename
//
// # Terminal Utilities
//
// Functions for terminal detection and masked input:
//   - ReadPassphrase: masked password prompt on stdin
//   - ReadPassphraseFromTTY: masked prompt when stdin carries piped data
//   - IsTerminal: checks if stdin is a terminal
package utils
