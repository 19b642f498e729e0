package ports

import "context"

// BuilderService defines operations for building container images.
type BuilderService interface {
	// BuildImage builds a Docker image from a local directory or a git
	// repository URL and tags it. It returns the tag of the built image.
	BuildImage(ctx context.Context, source string, imageName string) (string, error)
}
