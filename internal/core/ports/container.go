package ports

import (
	"context"

	"github.com/melih/lighthouse-runner/internal/core/domain"
)

// RuntimeGateway defines the capability operations the lifecycle controller
// needs from a container runtime. No policy lives behind this interface,
// which allows us to switch between Docker, Podman, or anything else without
// changing the controller.
//
// Implementations apply their own bounded timeouts to every call.
type RuntimeGateway interface {
	// FindContainer resolves a container by name. It returns an error
	// wrapping domain.ErrContainerNotFound when no such container exists and
	// domain.ErrRuntimeUnavailable when the runtime cannot be reached.
	FindContainer(ctx context.Context, name string) (domain.Container, error)

	// ContainerStatus reports ContainerAbsent instead of a not-found error.
	ContainerStatus(ctx context.Context, name string) (domain.ContainerStatus, error)

	// BuildImage builds and tags an image from a build context.
	BuildImage(ctx context.Context, buildContext, tag string) error

	CreateAndStart(ctx context.Context, spec domain.ContainerSpec) (domain.Container, error)
	StartExisting(ctx context.Context, c domain.Container) error

	// ExecBlocking runs cmd and waits for it. Transport failures are reported
	// as an inconclusive result, never as an error.
	ExecBlocking(ctx context.Context, c domain.Container, cmd []string) domain.ExecResult

	// ExecDetached starts cmd and returns without waiting for it.
	ExecDetached(ctx context.Context, c domain.Container, cmd []string, env map[string]string) error

	// RemoveContainer force-removes the container, running or not.
	RemoveContainer(ctx context.Context, name string) error
}
