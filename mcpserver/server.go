package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/coderunner/chat"
	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/sandbox"
)

// Tool names
const (
	ExecuteCodeTool   = "execute_code"
	ListLanguagesTool = "list_languages"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config      *config.Config
	logger      *zap.Logger
	sandboxExec sandbox.SandboxExecutor
	mcpServer   *server.MCPServer
	httpServer  *server.StreamableHTTPServer
}

// executeCodeResult is the JSON payload of a successful execute_code call
type executeCodeResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   *int   `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMS int64  `json:"duration_ms"`
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, sandboxExec sandbox.SandboxExecutor) (*MCPServer, error) {
	s := &MCPServer{
		config:      cfg,
		logger:      logger,
		sandboxExec: sandboxExec,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("sandbox.backend", s.config.Sandbox.Backend),
		zap.Int("sandbox.timeout_sec", s.config.Sandbox.TimeoutSec),
		zap.String("sandbox.cpu_share", s.config.Sandbox.CPUShare),
		zap.String("sandbox.memory_limit", s.config.Sandbox.MemoryLimit),
		zap.Int("sandbox.pids_limit", s.config.Sandbox.PidsLimit),
		zap.Bool("sandbox.disable_network", s.config.Sandbox.DisableNetwork),
		zap.Bool("sandbox.enable_local_backend", s.config.Sandbox.EnableLocalBackend),
		zap.Strings("languages", sandboxExec.Languages()),
	)

	// Create the MCP server
	s.mcpServer = server.NewMCPServer("coderunner", "Runs untrusted code in isolated sandboxes",
		server.WithToolCapabilities(false))

	s.registerExecuteCodeTool()
	s.registerListLanguagesTool()

	s.httpServer = server.NewStreamableHTTPServer(s.mcpServer)

	return s, nil
}

// registerExecuteCodeTool registers the execute_code tool
func (s *MCPServer) registerExecuteCodeTool() {
	s.mcpServer.AddTool(s.executeCodeTool(), s.handleExecuteCode)
}

// executeCodeTool describes execute_code. Identifiers are matched
// case-insensitively, so they are listed in the description instead of an enum.
func (s *MCPServer) executeCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        ExecuteCodeTool,
		Description: "Execute untrusted code in a sandboxed environment. The program reads nothing but its own source; stdout, stderr and the exit code are returned.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Source code, either raw or wrapped in a fenced code block",
				},
				"language": map[string]any{
					"type":        "string",
					"description": "Language identifier, one of: " + strings.Join(s.sandboxExec.Languages(), ", "),
				},
			},
			Required: []string{"code", "language"},
		},
	}
}

// registerListLanguagesTool registers the list_languages tool
func (s *MCPServer) registerListLanguagesTool() {
	tool := mcp.NewTool(ListLanguagesTool,
		mcp.WithDescription("List the language identifiers accepted by execute_code"),
	)

	s.mcpServer.AddTool(tool, s.handleListLanguages)
}

// handleExecuteCode handles the execute_code tool
func (s *MCPServer) handleExecuteCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info("code execution requested")

	// Extract parameters
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	language, err := request.RequireString("language")
	if err != nil {
		return nil, fmt.Errorf("language parameter is required: %w", err)
	}

	// Models tend to send markdown
	if block, ok := chat.ExtractCodeBlock(code); ok {
		code = block
	}

	s.logger.Info("executing code in sandbox",
		zap.String("language", language),
		zap.Int("code_len", len(code)))

	result, err := s.sandboxExec.Execute(ctx, sandbox.ExecuteRequest{
		Language: language,
		Code:     code,
	})
	if err != nil {
		s.logger.Error("sandbox execution failed",
			zap.Error(err),
			zap.String("language", language))
		return mcp.NewToolResultError(s.errorMessage(err)), nil
	}

	exitCode := -1
	if result.ExitCode != nil {
		exitCode = *result.ExitCode
	}
	s.logger.Info("code execution completed",
		zap.String("language", language),
		zap.Int("exit_code", exitCode),
		zap.Bool("timed_out", result.TimedOut),
		zap.Int("stdout_len", len(result.Stdout)),
		zap.Int("stderr_len", len(result.Stderr)))

	resultJSON, err := json.Marshal(executeCodeResult{
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ExitCode:   result.ExitCode,
		TimedOut:   result.TimedOut,
		DurationMS: result.Duration.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return mcp.NewToolResultText(string(resultJSON)), nil
}

// handleListLanguages handles the list_languages tool
func (s *MCPServer) handleListLanguages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	languages, err := json.Marshal(s.sandboxExec.Languages())
	if err != nil {
		return nil, fmt.Errorf("failed to encode languages: %w", err)
	}
	return mcp.NewToolResultText(string(languages)), nil
}

// errorMessage maps engine errors to tool error text. Launch and wait
// details stay in the logs.
func (s *MCPServer) errorMessage(err error) string {
	var (
		unsupported *sandbox.UnsupportedLanguageError
		launchErr   *sandbox.LaunchError
	)

	switch {
	case errors.As(err, &unsupported):
		return fmt.Sprintf("invalid language: %s, must be one of: %s",
			unsupported.Language, strings.Join(s.sandboxExec.Languages(), ", "))
	case errors.As(err, &launchErr):
		return "Execution failed: sandbox could not be started"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Execution cancelled"
	default:
		return "Execution failed: internal error"
	}
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	return s.httpServer.Start(fmt.Sprintf(":%d", port))
}

// Shutdown stops the HTTP transport. It is a no-op when ServeHTTP was never called.
func (s *MCPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping MCP HTTP server")
	return s.httpServer.Shutdown(ctx)
}
