package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/joho/godotenv"

	"github.com/sealenv/sealenv/internal/audit"
	serrors "github.com/sealenv/sealenv/internal/errors"
	"github.com/sealenv/sealenv/internal/secrets"
)

// ExecOptions configures the exec workflow.
type ExecOptions struct {
	// FilePatterns selects the env files to decrypt for the child's
	// environment.
	FilePatterns []string

	// WithFiles are additional plain dotenv files merged before the
	// decrypted values are applied (decrypted values win).
	WithFiles []string

	// Command is the program and its arguments.
	Command []string

	// Username and Password authenticate the caller.
	Username string
	Password string
}

// ExecResult contains the outcome of an exec operation.
type ExecResult struct {
	// ExitCode is the child process's exit code.
	ExitCode int

	// VarCount is the number of variables injected from env files.
	VarCount int
}

// Exec decrypts the selected env files in memory and runs the command
// with those variables merged over the parent environment. Plaintext
// never touches disk. The child inherits stdin/stdout/stderr, and its
// exit code is returned in the result.
func Exec(ctx context.Context, opts ExecOptions) (*ExecResult, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("no command given")
	}

	projectConfig, err := loadProject()
	if err != nil {
		return nil, err
	}

	files, err := resolveTargetFiles(opts.FilePatterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, serrors.ErrNoFilesFound
	}

	targets, err := parseTargets(files)
	if err != nil {
		return nil, err
	}

	keys, err := unlockValueKeys(projectConfig, opts.Username, opts.Password)
	if err != nil {
		return nil, err
	}
	defer keys.Close()

	vars := make(map[string]string)

	// Plain dotenv files first, so decrypted project values override
	// them on key collisions.
	for _, path := range opts.WithFiles {
		extra, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for k, v := range extra {
			vars[k] = v
		}
	}

	for _, tgt := range targets {
		for _, entry := range tgt.env.Entries() {
			if !entry.Encrypted {
				vars[entry.Key] = entry.Value
				continue
			}

			token, err := secrets.ParseToken(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s in %s", serrors.ErrMalformedToken, entry.Key, tgt.path)
			}
			key, err := keys.ForVersion(token.Version)
			if err != nil {
				return nil, err
			}
			plaintext, err := secrets.Decrypt(token, key)
			if err != nil {
				if errors.Is(err, serrors.ErrAuthenticationFailed) {
					return nil, fmt.Errorf("%w: %s in %s did not decrypt",
						serrors.ErrInvalidPassword, entry.Key, tgt.path)
				}
				return nil, err
			}
			vars[entry.Key] = string(plaintext)
		}
	}

	env := os.Environ()
	for k, v := range vars {
		env = append(env, k+"="+v)
	}

	// #nosec G204 -- running the user's own command is the point.
	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	result := &ExecResult{VarCount: len(vars)}

	runErr := cmd.Run()

	entry := audit.New(audit.ActionExec)
	entry.User = opts.Username
	entry.Files = files
	entry.Detail = opts.Command[0]
	audit.Log(entry)

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", opts.Command[0], runErr)
	}

	return result, nil
}
