// Package audit provides audit trail logging for sealenv operations.
//
// Every state-changing operation (init, encrypt, decrypt, rotate,
// register, revoke, purge) and every unlock is recorded in a user-level
// audit log, so one machine's history covers all of its projects.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	<data dir>/sealenv/audit.jsonl
//
// Each entry contains:
//   - A UUID and timestamp (RFC3339 with microseconds, UTC)
//   - The acting username
//   - The action name and the project it touched
//   - Action-specific details (files, target users, counts)
//
// Secret values and passwords never appear in any entry.
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error. Operations must never
// fail just because audit logging failed.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit
