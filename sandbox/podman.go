package sandbox

import "go.uber.org/zap"

// NewPodmanLauncher creates a ContainerLauncher driving the podman CLI.
// Podman accepts the same run and kill arguments as docker.
func NewPodmanLauncher(logger *zap.Logger, opts ...ContainerLauncherOption) *ContainerLauncher {
	return NewContainerLauncher(logger, "podman", opts...)
}
