package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrGitMissing indicates the git executable is not available. This is an
// environment error: nothing hook-related is safely possible without it.
var ErrGitMissing = errors.New("git executable not found in PATH")

// Client provides the git operations needed to manage a repository's hook
// path configuration.
type Client interface {
	// IsRepository reports whether dir is inside a git work tree.
	IsRepository(ctx context.Context, dir string) (bool, error)
	// HooksPath returns the repository-local core.hooksPath value, or ""
	// when unset.
	HooksPath(ctx context.Context, dir string) (string, error)
	// SetHooksPath sets the repository-local core.hooksPath value.
	SetHooksPath(ctx context.Context, dir, path string) error
	// UnsetHooksPath removes the repository-local core.hooksPath value.
	// Unsetting an already-unset value is not an error.
	UnsetHooksPath(ctx context.Context, dir string) error
}

// ShellClient implements Client by shelling out to the git command
type ShellClient struct{}

// NewShellClient creates a new git client that uses the git command
func NewShellClient() *ShellClient {
	return &ShellClient{}
}

// IsRepository reports whether dir is inside a git work tree.
func (c *ShellClient) IsRepository(ctx context.Context, dir string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--is-inside-work-tree")
	output, err := cmd.Output()
	if err != nil {
		if isGitMissing(err) {
			return false, fmt.Errorf("%w: %v", ErrGitMissing, err)
		}
		// rev-parse exits non-zero outside a repository.
		return false, nil
	}
	return strings.TrimSpace(string(output)) == "true", nil
}

// HooksPath returns the repository-local core.hooksPath value, or "" when
// the key is unset.
func (c *ShellClient) HooksPath(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "config", "--local", "--get", "core.hooksPath")
	output, err := cmd.Output()
	if err != nil {
		if isGitMissing(err) {
			return "", fmt.Errorf("%w: %v", ErrGitMissing, err)
		}
		// git config --get exits 1 when the key is unset.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", fmt.Errorf("git config --get core.hooksPath failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// SetHooksPath sets the repository-local core.hooksPath value.
func (c *ShellClient) SetHooksPath(ctx context.Context, dir, path string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "config", "--local", "core.hooksPath", path)
	if err := runCommand(cmd); err != nil {
		return fmt.Errorf("failed to set core.hooksPath: %w", err)
	}
	return nil
}

// UnsetHooksPath removes the repository-local core.hooksPath value.
func (c *ShellClient) UnsetHooksPath(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "config", "--local", "--unset", "core.hooksPath")
	if err := runCommand(cmd); err != nil {
		// git config --unset exits 5 when the key was not set.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 5 {
			return nil
		}
		return fmt.Errorf("failed to unset core.hooksPath: %w", err)
	}
	return nil
}

// isGitMissing reports whether err indicates the git binary is absent.
func isGitMissing(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// runCommand executes a command and returns an error with stderr on failure
func runCommand(cmd *exec.Cmd) error {
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Preserve the exit error for callers that inspect codes,
			// but carry the command output for the log.
			exitErr.Stderr = output
			return exitErr
		}
		if isGitMissing(err) {
			return fmt.Errorf("%w: %v", ErrGitMissing, err)
		}
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
