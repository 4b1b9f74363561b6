// Package logger provides structured logging capabilities.
//
// The logger package sets up the zap logger shared by the execution engine,
// the transports and the CLI, and adapts it for fx lifecycle events.
//
// Usage:
//
//	log, err := logger.New("production", "info", logger.WithOutputPaths("stderr"))
//	if err != nil {
//	    return err
//	}
//	log.Info("Application started")
package logger
