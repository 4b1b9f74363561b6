// Package main is the entry point for coderunner.
//
// coderunner executes untrusted programs in throwaway containers with strict
// resource limits. `coderunner serve` exposes the engine as a Model Context
// Protocol server (stdio or HTTP) next to an ops HTTP endpoint with health,
// metrics, execution and chat commands. `coderunner run` executes a single
// file from the command line.
//
// The application uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging, viper for configuration and
// cobra for the command line.
package main
