package sandbox

import "fmt"

// UnsupportedLanguageError is returned when a language identifier has no recipe.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language: %s", e.Language)
}

// LaunchError reports that the isolation layer could not be started.
type LaunchError struct {
	Sandbox string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch sandbox %s: %v", e.Sandbox, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// StdinWriteError reports that the submitted source could not be fed to the sandbox.
type StdinWriteError struct {
	Sandbox string
	Err     error
}

func (e *StdinWriteError) Error() string {
	return fmt.Sprintf("failed to write code to sandbox %s: %v", e.Sandbox, e.Err)
}

func (e *StdinWriteError) Unwrap() error { return e.Err }

// ExecutionError reports a wait or output failure that is not a timeout.
type ExecutionError struct {
	Sandbox string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sandbox %s execution failed: %v", e.Sandbox, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// KillError reports a failed forced termination. It is logged, never returned
// from Execute.
type KillError struct {
	Sandbox string
	Err     error
}

func (e *KillError) Error() string {
	return fmt.Sprintf("failed to kill sandbox %s: %v", e.Sandbox, e.Err)
}

func (e *KillError) Unwrap() error { return e.Err }
