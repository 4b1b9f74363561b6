package sandbox

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

var errSandboxNotFound = errors.New("no such sandbox")

// LocalLauncher implements Launcher by running the recipe's invocation
// directly on the host (WARNING: This is not secure and should only be used
// for development). No resource limits are applied. Each sandbox gets its own
// process group and scratch working directory.
type LocalLauncher struct {
	logger *zap.Logger
	fs     FileSystem

	mu      sync.Mutex
	running map[string]*exec.Cmd
}

// LocalLauncherOption defines a functional option for LocalLauncher
type LocalLauncherOption func(*LocalLauncher)

// WithLocalFileSystem sets the FileSystem for LocalLauncher
func WithLocalFileSystem(fs FileSystem) LocalLauncherOption {
	return func(l *LocalLauncher) {
		l.fs = fs
	}
}

// NewLocalLauncher creates a new LocalLauncher
func NewLocalLauncher(logger *zap.Logger, opts ...LocalLauncherOption) *LocalLauncher {
	launcher := &LocalLauncher{
		logger:  logger,
		fs:      &RealFileSystem{}, // Default implementation
		running: make(map[string]*exec.Cmd),
	}

	for _, opt := range opts {
		opt(launcher)
	}

	return launcher
}

// Start runs the recipe's command as a host process
func (l *LocalLauncher) Start(ctx context.Context, recipe Recipe, _ Policy) (*Handle, error) {
	id := NewHandleID(recipe.ID)

	if err := ctx.Err(); err != nil {
		return nil, &LaunchError{Sandbox: id, Err: err}
	}

	argv, err := recipe.Command()
	if err != nil {
		return nil, &LaunchError{Sandbox: id, Err: err}
	}

	workdir, err := l.fs.MkdirTemp("", "coderunner-local-*")
	if err != nil {
		return nil, &LaunchError{Sandbox: id, Err: err}
	}

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // Running user code is intended functionality
	cmd.Dir = workdir
	cmd.Env = os.Environ()
	setProcessGroup(cmd)

	l.logger.Warn("starting local sandbox without isolation",
		zap.String("sandbox", id),
		zap.String("language", recipe.ID),
		zap.Strings("argv", argv))

	handle, err := startCommand(id, cmd, func() { l.release(id, workdir) })
	if err != nil {
		l.removeWorkdir(workdir)
		return nil, &LaunchError{Sandbox: id, Err: err}
	}

	l.mu.Lock()
	l.running[id] = cmd
	l.mu.Unlock()

	return handle, nil
}

// Kill signals the sandbox's whole process group
func (l *LocalLauncher) Kill(_ context.Context, id string) error {
	l.mu.Lock()
	cmd, ok := l.running[id]
	l.mu.Unlock()

	if !ok {
		return &KillError{Sandbox: id, Err: errSandboxNotFound}
	}

	if err := killProcessGroup(cmd.Process); err != nil {
		return &KillError{Sandbox: id, Err: err}
	}

	l.logger.Info("killed local sandbox", zap.String("sandbox", id))
	return nil
}

// Running reports how many local sandboxes have not been reaped yet
func (l *LocalLauncher) Running() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.running)
}

func (l *LocalLauncher) release(id, workdir string) {
	l.mu.Lock()
	delete(l.running, id)
	l.mu.Unlock()

	l.removeWorkdir(workdir)
}

func (l *LocalLauncher) removeWorkdir(workdir string) {
	if err := l.fs.RemoveAll(workdir); err != nil {
		l.logger.Error("failed to remove temp directory", zap.String("path", workdir), zap.Error(err))
	}
}
