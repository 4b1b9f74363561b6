package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/httpserver"
	"github.com/isdmx/coderunner/logger"
	"github.com/isdmx/coderunner/mcpserver"
	"github.com/isdmx/coderunner/sandbox"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server and the ops HTTP endpoint",
	Long: `Start the MCP server on the configured transport (stdio or http).

Unless server.metrics_port is 0, the ops endpoint is served as well:
  GET  /healthz
  GET  /metrics
  GET  /v1/languages
  POST /v1/execute   {"language": "...", "code": "..."}
  POST /v1/chat      {"message": "!compile python ..."}`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		app := fx.New(
			fx.Provide(
				config.New,
				logger.NewFromConfig,
				sandbox.NewExecutor,
				mcpserver.New,
				httpserver.New,
			),
			fx.Invoke(registerTransport, registerOpsServer),
			fx.WithLogger(logger.NewFxEventLogger),
		)
		if err := app.Err(); err != nil {
			return err
		}

		app.Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// registerTransport runs the MCP transport for the lifetime of the app. When
// the transport ends on its own (stdin closed, listener error) the app shuts down.
func registerTransport(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, log *zap.Logger, server *mcpserver.MCPServer) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			serve := server.ServeStdio
			if cfg.Server.Transport == "http" {
				serve = server.ServeHTTP
			}

			go func() {
				if err := serve(); err != nil {
					log.Error("MCP transport stopped", zap.String("transport", cfg.Server.Transport), zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Server.Transport == "http" {
				return server.Shutdown(ctx)
			}
			return nil
		},
	})
}

func registerOpsServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, server *httpserver.Server) {
	if cfg.Server.MetricsPort == 0 {
		log.Info("ops server disabled")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return server.Start()
		},
		OnStop: server.Stop,
	})
}
