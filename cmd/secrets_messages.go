package cmd

import (
	"errors"
	"fmt"

	serrors "github.com/sealenv/sealenv/internal/errors"

	"github.com/fatih/color"
)

// countNoun formats a count with a naively pluralized noun, "1 value" or
// "3 values".
func countNoun(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// friendlyMessage maps the well-known operation errors to a final spinner
// message with a next step the user can act on. Returns "" for errors that
// should propagate instead.
func friendlyMessage(err error) string {
	cross := color.RedString("✗")
	arrow := color.CyanString("→")

	switch {
	case errors.Is(err, serrors.ErrProjectNotInitialized):
		return cross + " Sealenv has not been initialized\n" +
			arrow + " Run " + color.YellowString("sealenv secrets init") + " first"

	case errors.Is(err, serrors.ErrProjectAlreadyInitialized):
		return cross + " Sealenv has already been initialized here\n" +
			arrow + " Run " + color.YellowString("sealenv secrets status") + " to inspect the project"

	case errors.Is(err, serrors.ErrNotTeamProject):
		return cross + " This is a standalone project\n" +
			arrow + " User management needs a team project (" + color.YellowString("sealenv secrets init --team") + ")"

	case errors.Is(err, serrors.ErrInvalidOldPassword):
		return cross + " Current password incorrect\n" +
			arrow + " Nothing was changed; try again with the right password"

	case errors.Is(err, serrors.ErrInvalidPassword), errors.Is(err, serrors.ErrAuthenticationFailed):
		return cross + " Password incorrect\n" +
			arrow + " Check your password and try again"

	case errors.Is(err, serrors.ErrUnsupportedVersion):
		return cross + " An encrypted value uses a newer format version\n" +
			arrow + " Upgrade sealenv to read this value\n" +
			color.RedString("Error: ") + err.Error()

	case errors.Is(err, serrors.ErrMalformedToken):
		return cross + " An encrypted value is corrupt\n" +
			arrow + " Restore the affected file from version control or a backup\n" +
			color.RedString("Error: ") + err.Error()

	case errors.Is(err, serrors.ErrConcurrentModification):
		return cross + " A file changed while the rotation was running\n" +
			arrow + " Nothing was changed; re-run the command"

	case errors.Is(err, serrors.ErrUserNotFound):
		return cross + " No such user in the keyring\n" +
			arrow + " Run " + color.YellowString("sealenv secrets access") + " to list users"

	case errors.Is(err, serrors.ErrUserAlreadyExists):
		return cross + " That username is already registered\n" +
			arrow + " Run " + color.YellowString("sealenv secrets access") + " to list users"

	case errors.Is(err, serrors.ErrCannotRevokeLastAdmin):
		return cross + " Cannot revoke the last admin\n" +
			arrow + " Promote another user with " + color.YellowString("sealenv secrets register --admin") + " first"

	case errors.Is(err, serrors.ErrInvalidEnvelope):
		return cross + " The keyring file is invalid\n" +
			color.RedString("Error: ") + err.Error()

	case errors.Is(err, serrors.ErrNoFilesFound), errors.Is(err, serrors.ErrFileNotFound):
		return cross + " No matching environment files found\n" +
			color.RedString("Error: ") + err.Error()
	}

	return ""
}
