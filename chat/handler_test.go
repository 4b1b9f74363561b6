package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/coderunner/sandbox"
)

// MockSandboxExecutor implements sandbox.SandboxExecutor for testing
type MockSandboxExecutor struct {
	executeResult sandbox.ExecuteResult
	executeError  error
	requests      []sandbox.ExecuteRequest
}

func (m *MockSandboxExecutor) Execute(_ context.Context, req sandbox.ExecuteRequest) (sandbox.ExecuteResult, error) {
	m.requests = append(m.requests, req)
	return m.executeResult, m.executeError
}

func (m *MockSandboxExecutor) Languages() []string {
	return []string{"cpp", "python", "scala"}
}

func TestHandler(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("Compile", func(t *testing.T) {
		executor := &MockSandboxExecutor{executeResult: sandbox.ExecuteResult{Stdout: "3\n", ExitCode: intPtr(0)}}
		handler := NewHandler(logger, executor)

		reply, err := handler.Handle(context.Background(), "!compile python ```python\nprint(1+2)\n```")
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, reply.Status)
		assert.Equal(t, []sandbox.ExecuteRequest{{Language: "python", Code: "print(1+2)"}}, executor.requests)
	})

	t.Run("ExecutorError", func(t *testing.T) {
		executor := &MockSandboxExecutor{executeError: &sandbox.UnsupportedLanguageError{Language: "cobol"}}
		handler := NewHandler(logger, executor)

		reply, err := handler.Handle(context.Background(), "!compile cobol DISPLAY 'HI'")
		require.NoError(t, err)
		assert.Equal(t, "Unsupported language", reply.Title)
	})

	t.Run("Languages", func(t *testing.T) {
		executor := &MockSandboxExecutor{}
		handler := NewHandler(logger, executor)

		reply, err := handler.Handle(context.Background(), "!languages")
		require.NoError(t, err)
		assert.Equal(t, "`cpp`, `python`, `scala`", reply.Description)
		assert.Empty(t, executor.requests)
	})

	t.Run("Help", func(t *testing.T) {
		reply, err := NewHandler(logger, &MockSandboxExecutor{}).Handle(context.Background(), "!help")
		require.NoError(t, err)
		assert.Equal(t, HelpText(), reply.Description)
	})

	t.Run("ParseError", func(t *testing.T) {
		executor := &MockSandboxExecutor{}
		reply, err := NewHandler(logger, executor).Handle(context.Background(), "!compile")
		require.NoError(t, err)
		assert.Equal(t, "Missing language", reply.Title)
		assert.Empty(t, executor.requests)
	})

	t.Run("NotCommand", func(t *testing.T) {
		_, err := NewHandler(logger, &MockSandboxExecutor{}).Handle(context.Background(), "just chatting")
		assert.True(t, errors.Is(err, ErrNotCommand))
	})
}
