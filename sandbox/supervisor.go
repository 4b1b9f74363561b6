package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// otherLanguage labels metrics for identifiers that are not in the registry.
const otherLanguage = "other"

// Supervisor owns executions end to end: it launches one sandbox per call,
// feeds it the source, races it against the policy timeout and makes sure the
// sandbox is gone before returning.
type Supervisor struct {
	logger   *zap.Logger
	registry *Registry
	policy   Policy
	launcher Launcher
	slots    *semaphore.Weighted
}

// SupervisorOption defines a functional option for Supervisor
type SupervisorOption func(*Supervisor)

// WithMaxConcurrent bounds the number of sandboxes running at once.
// Zero or less means unlimited.
func WithMaxConcurrent(n int) SupervisorOption {
	return func(s *Supervisor) {
		if n > 0 {
			s.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewSupervisor creates a Supervisor. The registry and policy are shared
// read-only by every execution.
func NewSupervisor(logger *zap.Logger, registry *Registry, policy Policy, launcher Launcher, opts ...SupervisorOption) (*Supervisor, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resource policy: %w", err)
	}

	s := &Supervisor{
		logger:   logger,
		registry: registry,
		policy:   policy,
		launcher: launcher,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Languages returns the supported language identifiers in sorted order
func (s *Supervisor) Languages() []string {
	return s.registry.List()
}

// Execute runs req.Code in a fresh sandbox.
//
// Empty code, non-zero exits and timeouts are reported through the result.
// Errors are returned only for unknown languages and infrastructure failures
// (launch, stdin, wait); in every error case that got as far as launching,
// a kill has been issued before Execute returns.
func (s *Supervisor) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	if strings.TrimSpace(req.Code) == "" {
		executionsTotal.WithLabelValues(s.metricLanguage(req.Language), outcomeRejected).Inc()
		exitCode := 1
		return ExecuteResult{Stderr: EmptyCodeMessage, ExitCode: &exitCode}, nil
	}

	recipe, err := s.registry.Lookup(req.Language)
	if err != nil {
		executionsTotal.WithLabelValues(otherLanguage, outcomeUnsupported).Inc()
		return ExecuteResult{}, err
	}

	if s.slots != nil {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			executionsTotal.WithLabelValues(recipe.ID, outcomeFailed).Inc()
			return ExecuteResult{}, &LaunchError{Sandbox: recipe.ID, Err: fmt.Errorf("waiting for a free sandbox slot: %w", err)}
		}
		defer s.slots.Release(1)
	}

	handle, err := s.launcher.Start(ctx, recipe, s.policy)
	if err != nil {
		var launchErr *LaunchError
		if !errors.As(err, &launchErr) {
			err = &LaunchError{Sandbox: recipe.ID, Err: err}
		}
		s.logger.Error("failed to start sandbox", zap.String("language", recipe.ID), zap.Error(err))
		executionsTotal.WithLabelValues(recipe.ID, outcomeFailed).Inc()
		return ExecuteResult{}, err
	}

	started := time.Now()
	activeSandboxes.Inc()
	defer activeSandboxes.Dec()

	result, err := s.supervise(ctx, recipe, handle, req.Code)
	elapsed := time.Since(started)
	executionDuration.WithLabelValues(recipe.ID).Observe(elapsed.Seconds())

	switch {
	case err != nil:
		executionsTotal.WithLabelValues(recipe.ID, outcomeFailed).Inc()
		return ExecuteResult{}, err
	case result.TimedOut:
		executionsTotal.WithLabelValues(recipe.ID, outcomeTimedOut).Inc()
	default:
		executionsTotal.WithLabelValues(recipe.ID, outcomeCompleted).Inc()
	}

	result.Duration = elapsed
	return result, nil
}

// completion is what a sandbox leaves behind when it exits on its own.
type completion struct {
	stdout, stderr       string
	stdoutCut, stderrCut bool
	exitCode             int
	exited               bool
	err                  error
}

func (s *Supervisor) supervise(ctx context.Context, recipe Recipe, handle *Handle, code string) (ExecuteResult, error) {
	logger := s.logger.With(zap.String("sandbox", handle.ID), zap.String("language", recipe.ID))

	deadline := time.NewTimer(s.policy.Timeout)
	defer deadline.Stop()

	// Output is drained from launch on so a program that prints before it has
	// read all of its input cannot deadlock against the stdin write.
	done := make(chan completion, 1)
	go func() {
		done <- s.collect(handle)
	}()

	written := make(chan error, 1)
	go func() {
		written <- writeSource(handle.Stdin, code)
	}()

	select {
	case err := <-written:
		if err != nil {
			logger.Error("failed to write to stdin", zap.Error(err))
			s.teardown(ctx, logger, handle, "stdin write failed")
			return ExecuteResult{}, &StdinWriteError{Sandbox: handle.ID, Err: err}
		}
	case <-deadline.C:
		return s.timedOut(ctx, logger, handle), nil
	case <-ctx.Done():
		s.teardown(ctx, logger, handle, "execution cancelled")
		return ExecuteResult{}, &ExecutionError{Sandbox: handle.ID, Err: ctx.Err()}
	}

	select {
	case c := <-done:
		if c.err != nil {
			logger.Error("sandbox wait failed", zap.Error(c.err))
			s.teardown(ctx, logger, handle, "wait failed")
			return ExecuteResult{}, &ExecutionError{Sandbox: handle.ID, Err: c.err}
		}

		result := ExecuteResult{
			Stdout: s.truncate(c.stdout, c.stdoutCut),
			Stderr: s.truncate(c.stderr, c.stderrCut),
		}
		if c.exited {
			exitCode := c.exitCode
			result.ExitCode = &exitCode
		}

		logger.Info("sandbox finished",
			zap.Bool("exited", c.exited),
			zap.Int("exit_code", c.exitCode),
			zap.Int("stdout_len", len(c.stdout)),
			zap.Int("stderr_len", len(c.stderr)))
		return result, nil
	case <-deadline.C:
		return s.timedOut(ctx, logger, handle), nil
	case <-ctx.Done():
		s.teardown(ctx, logger, handle, "execution cancelled")
		return ExecuteResult{}, &ExecutionError{Sandbox: handle.ID, Err: ctx.Err()}
	}
}

// collect drains both output streams and then reaps the process.
func (s *Supervisor) collect(handle *Handle) completion {
	limit := captureLimit(s.policy.MaxOutputLength)
	stdout := newCappedBuffer(limit)
	stderr := newCappedBuffer(limit)

	var g errgroup.Group
	g.Go(func() error {
		if _, err := io.Copy(stdout, handle.Stdout); err != nil {
			return fmt.Errorf("reading stdout: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := io.Copy(stderr, handle.Stderr); err != nil {
			return fmt.Errorf("reading stderr: %w", err)
		}
		return nil
	})
	drainErr := g.Wait()

	exitCode, exited, waitErr := handle.Wait()
	if err := errors.Join(drainErr, waitErr); err != nil {
		return completion{err: err}
	}

	return completion{
		stdout:    stdout.String(),
		stderr:    stderr.String(),
		stdoutCut: stdout.Overflowed(),
		stderrCut: stderr.Overflowed(),
		exitCode:  exitCode,
		exited:    exited,
	}
}

// timedOut kills the sandbox and builds the synthetic timeout result.
// Partial output is discarded.
func (s *Supervisor) timedOut(ctx context.Context, logger *zap.Logger, handle *Handle) ExecuteResult {
	logger.Warn("sandbox timed out", zap.Duration("timeout", s.policy.Timeout))
	s.teardown(ctx, logger, handle, "timeout")

	exitCode := TimeoutExitCode
	return ExecuteResult{
		Stderr:   TimedOutMessage,
		ExitCode: &exitCode,
		TimedOut: true,
	}
}

// teardown issues a bounded, best-effort kill and releases the local process.
// The kill outcome is logged and counted but never changes the result.
func (s *Supervisor) teardown(ctx context.Context, logger *zap.Logger, handle *Handle, reason string) {
	killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.policy.KillTimeout)
	defer cancel()

	if err := s.launcher.Kill(killCtx, handle.ID); err != nil {
		killsTotal.WithLabelValues(killFailed).Inc()
		logger.Error("failed to kill sandbox", zap.String("reason", reason), zap.Error(err))
	} else {
		killsTotal.WithLabelValues(killSucceeded).Inc()
		logger.Info("sandbox killed", zap.String("reason", reason))
	}

	handle.Abort()
}

func (s *Supervisor) truncate(out string, overflowed bool) string {
	truncated := s.policy.TruncateOutput(out)
	if overflowed && truncated == out {
		truncated = out + s.policy.TruncationMarker
	}
	return truncated
}

func (s *Supervisor) metricLanguage(id string) string {
	if recipe, err := s.registry.Lookup(id); err == nil {
		return recipe.ID
	}
	return otherLanguage
}

// writeSource feeds code to the sandbox and closes stdin to signal EOF.
func writeSource(stdin io.WriteCloser, code string) error {
	_, err := io.WriteString(stdin, code)
	closeErr := stdin.Close()
	if err != nil {
		return err
	}
	return closeErr
}
