// Package configs manages user and project configuration for sealenv.
//
// Configuration is stored in TOML format at two levels:
//
//   - User config: <user config dir>/sealenv/config.toml (identity, keychain toggle)
//   - Project config: .sealenv/config.toml (project identity, mode, keyref)
//
// # User Configuration
//
// The user config stores the default username for keyring registrations and
// whether successful passwords may be cached in the OS keychain. The username
// defaults to the system username on first use.
//
// # Project Configuration
//
// The project config stores the project identity (name, UUID, creation time)
// and the project mode: standalone (one password, keyref-based) or team
// (per-user wrapped project key in keyring.json).
//
// # Keyref
//
// In standalone mode the [keyref] table holds the active key derivation
// parameters: base64 salt, iteration count, token version, and the time of
// the last rotation. No password or key material is ever written here; the
// keyref only lets the same key be re-derived from the password. Rewrites go
// through an atomic whole-file replace so a rotation can never leave a
// half-updated keyref behind.
//
// # Settings
//
// Global settings are initialized at startup:
//   - UserSealenvSettings: paths to the user config and data directories
//   - ProjectSealenvSettings: current project's paths and identity
//
// Call InitProjectSettings() before accessing ProjectSealenvSettings.
// It walks up the directory tree to find the nearest .sealenv directory.
package configs
