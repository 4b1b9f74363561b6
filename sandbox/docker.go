package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ContainerLauncher implements Launcher on top of a docker-compatible CLI.
// The container runs with --rm, so a process that exits on its own leaves
// nothing behind; Kill covers every other path.
type ContainerLauncher struct {
	logger    *zap.Logger
	engine    string
	cmdRunner CommandRunner
	newID     func(language string) string
}

// ContainerLauncherOption defines a functional option for ContainerLauncher
type ContainerLauncherOption func(*ContainerLauncher)

// WithCommandRunner sets the CommandRunner used for out-of-band commands such as kill
func WithCommandRunner(cmdRunner CommandRunner) ContainerLauncherOption {
	return func(c *ContainerLauncher) {
		c.cmdRunner = cmdRunner
	}
}

// WithIDGenerator replaces the handle id generator
func WithIDGenerator(newID func(language string) string) ContainerLauncherOption {
	return func(c *ContainerLauncher) {
		c.newID = newID
	}
}

// NewDockerLauncher creates a ContainerLauncher driving the docker CLI
func NewDockerLauncher(logger *zap.Logger, opts ...ContainerLauncherOption) *ContainerLauncher {
	return NewContainerLauncher(logger, "docker", opts...)
}

// NewContainerLauncher creates a ContainerLauncher for the given engine binary
func NewContainerLauncher(logger *zap.Logger, engine string, opts ...ContainerLauncherOption) *ContainerLauncher {
	launcher := &ContainerLauncher{
		logger:    logger,
		engine:    engine,
		cmdRunner: &RealCommandRunner{}, // Default implementation
		newID:     NewHandleID,
	}

	for _, opt := range opts {
		opt(launcher)
	}

	return launcher
}

// Engine returns the CLI binary this launcher drives
func (c *ContainerLauncher) Engine() string {
	return c.engine
}

// Start runs the recipe in a new container with the policy's limits applied
func (c *ContainerLauncher) Start(ctx context.Context, recipe Recipe, policy Policy) (*Handle, error) {
	id := c.newID(recipe.ID)

	if err := ctx.Err(); err != nil {
		return nil, &LaunchError{Sandbox: id, Err: err}
	}

	args, err := BuildRunArgs(id, recipe, policy)
	if err != nil {
		return nil, &LaunchError{Sandbox: id, Err: err}
	}

	c.logger.Info("starting sandbox",
		zap.String("sandbox", id),
		zap.String("engine", c.engine),
		zap.String("language", recipe.ID),
		zap.String("image", recipe.Image))
	c.logger.Debug("sandbox command", zap.String("command", c.engine+" "+strings.Join(args, " ")))

	cmd := exec.Command(c.engine, args...) //nolint:gosec // Arguments are built from the recipe and policy

	handle, err := startCommand(id, cmd, nil)
	if err != nil {
		return nil, &LaunchError{Sandbox: id, Err: err}
	}
	return handle, nil
}

// Kill forcibly stops the named container
func (c *ContainerLauncher) Kill(ctx context.Context, id string) error {
	c.logger.Warn("attempting to kill container", zap.String("sandbox", id), zap.String("engine", c.engine))

	_, stderr, exitCode, err := c.cmdRunner.RunCommand(ctx, []string{c.engine, "kill", id})
	if err != nil {
		return &KillError{Sandbox: id, Err: err}
	}
	if exitCode != 0 {
		return &KillError{Sandbox: id, Err: fmt.Errorf("%s kill exited with %d: %s", c.engine, exitCode, strings.TrimSpace(stderr))}
	}

	c.logger.Info("killed container", zap.String("sandbox", id))
	return nil
}

// BuildRunArgs returns the engine arguments (without the binary) that start
// recipe in a container named id under policy.
func BuildRunArgs(id string, recipe Recipe, policy Policy) ([]string, error) {
	command, err := recipe.Command()
	if err != nil {
		return nil, err
	}

	args := []string{
		"run",
		"--rm", // Remove container after execution
		"--name", id,
	}

	if policy.NetworkDisabled {
		args = append(args, "--network", "none")
	}

	args = append(args,
		"--cpus", policy.CPUShare,
		"--memory", policy.MemoryLimit,
		"--pids-limit", strconv.Itoa(policy.PidsLimit),
		"--ulimit", "nofile="+policy.FileDescriptorLimit,
		"--security-opt", "no-new-privileges:true",
		"-i", // Keep stdin open for the program source
		recipe.Image,
	)

	return append(args, command...), nil
}
