// Package execshell runs the external git and gh processes used by repomirror.
//
// ShellExecutor layers structured logging and typed errors over a CommandRunner.
// It separates processes that ran and exited non-zero (CommandFailedError) from
// processes that could not run at all or were cut off by their context
// (CommandExecutionError). Synchronization code relies on that split to decide
// whether a clone fallback is allowed.
package execshell
