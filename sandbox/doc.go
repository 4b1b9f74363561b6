// Package sandbox provides secure code execution capabilities.
//
// The sandbox package implements the execution engine for running untrusted
// code in isolated environments. A Registry maps language identifiers to
// recipes, a Policy carries the resource limits, a Launcher starts one
// container per execution (Docker, Podman, or local for development), and the
// Supervisor owns each execution from launch to teardown.
//
// Usage:
//
//	executor, err := sandbox.NewExecutor(logger, cfg)
//	result, err := executor.Execute(ctx, sandbox.ExecuteRequest{
//	    Language: "python",
//	    Code:     "print('Hello, World!')",
//	})
package sandbox
