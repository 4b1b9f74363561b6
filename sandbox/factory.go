package sandbox

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/isdmx/coderunner/config"
)

// NewExecutor creates the execution supervisor described by the configuration:
// the language registry, the resource policy and the backend launcher.
func NewExecutor(logger *zap.Logger, cfg *config.Config) (SandboxExecutor, error) {
	recipes, err := RecipesFromConfig(cfg.Languages)
	if err != nil {
		return nil, fmt.Errorf("invalid language configuration: %w", err)
	}

	registry, err := NewRegistry(recipes...)
	if err != nil {
		return nil, fmt.Errorf("invalid language configuration: %w", err)
	}

	launcher, err := NewLauncher(logger, cfg)
	if err != nil {
		return nil, err
	}

	supervisor, err := NewSupervisor(logger, registry, NewPolicy(cfg), launcher,
		WithMaxConcurrent(cfg.Sandbox.MaxConcurrent))
	if err != nil {
		return nil, err
	}

	logger.Info("sandbox executor ready",
		zap.String("backend", cfg.Sandbox.Backend),
		zap.Strings("languages", registry.List()),
		zap.Duration("timeout", cfg.GetTimeout()))

	return supervisor, nil
}

// NewLauncher selects the launcher for the configured backend
func NewLauncher(logger *zap.Logger, cfg *config.Config) (Launcher, error) {
	switch cfg.Sandbox.Backend {
	case "docker":
		return NewDockerLauncher(logger), nil
	case "podman":
		return NewPodmanLauncher(logger), nil
	case "local":
		if !cfg.Sandbox.EnableLocalBackend {
			return nil, fmt.Errorf("local backend is disabled, set sandbox.enable_local_backend to use it")
		}
		return NewLocalLauncher(logger), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Sandbox.Backend)
	}
}
