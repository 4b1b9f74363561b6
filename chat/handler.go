package chat

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/isdmx/coderunner/sandbox"
)

// Handler answers chat commands with the execution engine.
type Handler struct {
	logger   *zap.Logger
	executor sandbox.SandboxExecutor
}

// NewHandler creates a Handler
func NewHandler(logger *zap.Logger, executor sandbox.SandboxExecutor) *Handler {
	return &Handler{logger: logger, executor: executor}
}

// Handle parses msg and runs it. ErrNotCommand is returned for ordinary
// messages so callers can ignore them; every other problem is rendered
// into the reply.
func (h *Handler) Handle(ctx context.Context, msg string) (Reply, error) {
	cmd, err := ParseCommand(msg)
	if errors.Is(err, ErrNotCommand) {
		return Reply{}, err
	}
	if err != nil {
		return RenderError(err), nil
	}

	switch cmd.Name {
	case CommandLanguages:
		return LanguagesReply(h.executor.Languages()), nil
	case CommandHelp:
		return HelpReply(), nil
	}

	h.logger.Info("compile command", zap.String("language", cmd.Language), zap.Int("code_len", len(cmd.Code)))

	result, err := h.executor.Execute(ctx, sandbox.ExecuteRequest{Language: cmd.Language, Code: cmd.Code})
	if err != nil {
		h.logger.Error("compile command failed", zap.String("language", cmd.Language), zap.Error(err))
		return RenderError(err), nil
	}
	return Render(cmd.Language, result), nil
}
