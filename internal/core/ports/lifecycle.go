package ports

import (
	"context"

	"github.com/melih/lighthouse-runner/internal/core/domain"
)

// LifecycleService is the caller-facing surface of the controller.
type LifecycleService interface {
	Launch(ctx context.Context, req domain.LaunchRequest) (domain.LaunchResult, error)
	ReadStatus(ctx context.Context) (domain.RunStatus, error)
	Stop(ctx context.Context) error
	Remove(ctx context.Context) error
	ContainerStatus(ctx context.Context) (domain.ContainerStatus, error)
}
