package domain

import (
	"context"
	"time"
)

// CommandExecutor runs brew invocations.
// Implementation: os/exec with supervised watchers, see internal/infra.
type CommandExecutor interface {
	// Execute runs the command to completion and returns its captured
	// stdout. No timeout, no prompt detection; intended for the short
	// non-interactive phases (update, outdated, cleanup).
	Execute(ctx context.Context, cmd BrewCommand) (string, error)

	// ExecuteWithTimeout runs the command under supervision: the call
	// returns InputRequested if the child asks for input on stdout or
	// stderr, Timeout if the wall-clock budget elapses first, and
	// guarantees the child is dead before returning. Negative timeouts
	// clamp to zero.
	ExecuteWithTimeout(ctx context.Context, cmd BrewCommand, timeout time.Duration) error

	// InheritedEnv returns the variables forwarded to every child: HOME
	// and PATH from the process environment, omitted when absent.
	InheritedEnv() map[string]string
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// Kill terminates a process by PID (SIGKILL). Killing an already-dead
	// PID returns an error the caller is free to ignore.
	Kill(pid int) error

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// OutdatedDecoder parses the stdout of `brew outdated --json`.
type OutdatedDecoder interface {
	// Decode returns the report or an error when the document is
	// malformed. Unknown fields are ignored; ordering is preserved.
	Decode(text string) (*OutdatedReport, error)
}

// ScheduleManager installs the launchd agent that triggers periodic
// maintenance runs.
// Implementation: user LaunchAgent plist, see internal/infra.
type ScheduleManager interface {
	// Install writes and loads the agent plist pointing at execPath.
	Install(execPath string) error

	// Uninstall unloads and removes the agent plist.
	Uninstall() error

	// IsInstalled checks if the agent plist is present.
	IsInstalled() bool

	// PlistPath returns the plist file path.
	PlistPath() string
}
