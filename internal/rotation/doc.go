// Package rotation implements the password-rotation protocol for
// standalone projects.
//
// The protocol is strictly verify-then-commit: every encrypted value in
// every target file must decrypt under the old password before a single
// byte is written anywhere. An earlier generation of this tool rotated the
// key reference while silently keeping values it could not decrypt, which
// turned a mistyped old password into permanent data loss once the stored
// salt was replaced. The engine here makes that impossible by construction:
// the read/verify phase completes in full, the new file contents are built
// entirely in memory, and only then does the commit phase replace files
// atomically, updating the key reference last.
package rotation
