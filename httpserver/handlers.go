package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/isdmx/coderunner/chat"
	"github.com/isdmx/coderunner/sandbox"
)

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type languagesResponse struct {
	Languages []string `json:"languages"`
}

// executeResponse mirrors sandbox.ExecuteResult with the duration in milliseconds.
type executeResponse struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   *int   `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMS int64  `json:"duration_ms"`
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleListLanguages(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, languagesResponse{Languages: s.executor.Languages()})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req sandbox.ExecuteRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.executor.Execute(r.Context(), req)
	if err != nil {
		s.writeExecuteError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, executeResponse{
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ExitCode:   result.ExitCode,
		TimedOut:   result.TimedOut,
		DurationMS: result.Duration.Milliseconds(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := s.chat.Handle(r.Context(), req.Message)
	if errors.Is(err, chat.ErrNotCommand) {
		s.writeError(w, http.StatusUnprocessableEntity, "message is not a command")
		return
	}
	if err != nil {
		s.logger.Error("chat command failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to handle message")
		return
	}

	s.writeJSON(w, http.StatusOK, reply)
}

// writeExecuteError maps the engine's error taxonomy to status codes.
// Infrastructure details are logged, not returned.
func (s *Server) writeExecuteError(w http.ResponseWriter, err error) {
	var (
		unsupported *sandbox.UnsupportedLanguageError
		launchErr   *sandbox.LaunchError
	)

	switch {
	case errors.As(err, &unsupported):
		s.writeError(w, http.StatusBadRequest, unsupported.Error())
	case errors.As(err, &launchErr):
		s.logger.Error("sandbox launch failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "sandbox could not be started")
	default:
		s.logger.Error("sandbox execution failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "execution failed")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
