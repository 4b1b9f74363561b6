package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/google/uuid"
)

// Launcher starts isolated processes and terminates them by name.
type Launcher interface {
	// Start launches recipe under policy and returns immediately with piped
	// standard streams. It does not wait for the process to finish.
	Start(ctx context.Context, recipe Recipe, policy Policy) (*Handle, error)

	// Kill forcibly terminates the sandbox with the given handle id. It is
	// best-effort and must honor the deadline carried by ctx.
	Kill(ctx context.Context, id string) error
}

// Handle is one live sandbox. Its owner must either wait for it to exit or
// kill it, and must not let it outlive the execution that created it.
type Handle struct {
	ID     string
	Stdin  io.WriteCloser
	Stdout io.Reader
	Stderr io.Reader

	wait      func() error
	abort     func()
	abortOnce sync.Once
}

// NewHandle assembles a handle from its streams. wait blocks until the
// process exits; abort tears down the local end of the process and may be nil.
func NewHandle(id string, stdin io.WriteCloser, stdout, stderr io.Reader, wait func() error, abort func()) *Handle {
	return &Handle{
		ID:     id,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		wait:   wait,
		abort:  abort,
	}
}

type exitCoder interface {
	ExitCode() int
}

// Wait blocks until the process exits. It must only be called once Stdout and
// Stderr have been drained. exited is false when the process was terminated
// without reporting an exit status (e.g. by a signal).
func (h *Handle) Wait() (exitCode int, exited bool, err error) {
	err = h.wait()
	if err == nil {
		return 0, true, nil
	}

	var coder exitCoder
	if errors.As(err, &coder) {
		code := coder.ExitCode()
		if code < 0 {
			return 0, false, nil
		}
		return code, true, nil
	}
	return 0, false, err
}

// Abort releases the local process backing the handle. Safe to call more
// than once.
func (h *Handle) Abort() {
	h.abortOnce.Do(func() {
		if h.abort != nil {
			h.abort()
		}
	})
}

// NewHandleID returns a unique sandbox name for language.
func NewHandleID(language string) string {
	return fmt.Sprintf("sandbox_%s_%s", language, uuid.NewString())
}

// startCommand wires the standard streams of cmd and starts it. onExit, if
// set, runs after the process has been reaped.
func startCommand(id string, cmd *exec.Cmd, onExit func()) (*Handle, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	wait := func() error {
		err := cmd.Wait()
		if onExit != nil {
			onExit()
		}
		return err
	}
	abort := func() {
		_ = cmd.Process.Kill()
	}

	return NewHandle(id, stdin, stdout, stderr, wait, abort), nil
}
