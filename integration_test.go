//go:build unix

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/coderunner/chat"
	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/httpserver"
	"github.com/isdmx/coderunner/logger"
	"github.com/isdmx/coderunner/mcpserver"
	"github.com/isdmx/coderunner/sandbox"
)

// localConfig runs programs with the host shell so the tests need no container engine
func localConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Transport:   "stdio",
			HTTPPort:    8080,
			MetricsPort: 0,
		},
		Sandbox: config.SandboxConfig{
			Backend:             "local",
			EnableLocalBackend:  true,
			CPUShare:            "0.25",
			MemoryLimit:         "128m",
			PidsLimit:           100,
			FileDescriptorLimit: "64:64",
			DisableNetwork:      true,
			TimeoutSec:          1,
			KillTimeoutSec:      2,
			MaxOutputLength:     1000,
			TruncationMarker:    "...\n(truncated)",
			MaxConcurrent:       4,
		},
		Logging: config.LoggingConfig{
			Mode:  "development",
			Level: "debug",
		},
		Languages: map[string]config.Language{
			"sh": {Image: "local", Invocation: "sh", FileExtension: "sh"},
		},
	}
}

// TestIntegrationExecutorOverHTTP drives the real engine through the ops endpoint
func TestIntegrationExecutorOverHTTP(t *testing.T) {
	cfg := localConfig()
	log := zaptest.NewLogger(t)

	executor, err := sandbox.NewExecutor(log, cfg)
	require.NoError(t, err)
	assert.Contains(t, executor.Languages(), "sh")

	ts := httptest.NewServer(httpserver.New(cfg, log, executor).Router())
	defer ts.Close()

	post := func(t *testing.T, path string, body any) *http.Response {
		t.Helper()
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(string(payload)))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("Execute", func(t *testing.T) {
		resp := post(t, "/v1/execute", sandbox.ExecuteRequest{Language: "sh", Code: "echo out; echo err >&2; exit 2"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Stdout   string `json:"stdout"`
			Stderr   string `json:"stderr"`
			ExitCode *int   `json:"exit_code"`
			TimedOut bool   `json:"timed_out"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, "out\n", result.Stdout)
		assert.Equal(t, "err\n", result.Stderr)
		require.NotNil(t, result.ExitCode)
		assert.Equal(t, 2, *result.ExitCode)
		assert.False(t, result.TimedOut)
	})

	t.Run("Timeout", func(t *testing.T) {
		start := time.Now()
		resp := post(t, "/v1/execute", sandbox.ExecuteRequest{Language: "sh", Code: "sleep 30"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Stderr   string `json:"stderr"`
			ExitCode *int   `json:"exit_code"`
			TimedOut bool   `json:"timed_out"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.True(t, result.TimedOut)
		assert.Equal(t, sandbox.TimedOutMessage, result.Stderr)
		assert.Equal(t, sandbox.TimeoutExitCode, *result.ExitCode)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("Unsupported", func(t *testing.T) {
		resp := post(t, "/v1/execute", sandbox.ExecuteRequest{Language: "brainfuck", Code: "+"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("ChatCompile", func(t *testing.T) {
		resp := post(t, "/v1/chat", map[string]string{"message": "!compile sh ```sh\necho from chat\n```"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var reply chat.Reply
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
		assert.Equal(t, chat.StatusSuccess, reply.Status)
		require.NotEmpty(t, reply.Fields)
		assert.Contains(t, reply.Fields[0].Value, "from chat")
	})
}

// TestIntegrationFxWiring builds the serve graph the way the CLI does
func TestIntegrationFxWiring(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("config.yaml", []byte(`
server:
  transport: stdio
  metrics_port: 0
sandbox:
  backend: local
  enable_local_backend: true
logging:
  mode: development
  level: warn
`), 0o600))

	var (
		mcp      *mcpserver.MCPServer
		ops      *httpserver.Server
		executor sandbox.SandboxExecutor
	)

	app := fxtest.New(t,
		fx.Provide(
			config.New,
			logger.NewFromConfig,
			sandbox.NewExecutor,
			mcpserver.New,
			httpserver.New,
		),
		fx.Populate(&mcp, &ops, &executor),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, mcp)
	require.NotNil(t, ops)
	assert.Equal(t, []string{"cpp", "python", "scala"}, executor.Languages())

	result, err := executor.Execute(context.Background(), sandbox.ExecuteRequest{Language: "python", Code: "   "})
	require.NoError(t, err)
	assert.Equal(t, sandbox.EmptyCodeMessage, result.Stderr)
}
