package ports

import "github.com/melih/lighthouse-runner/internal/core/domain"

// StateStore persists the controller's lifecycle belief as a single object.
// Save replaces the whole object atomically.
type StateStore interface {
	// Load returns nil, nil when nothing is persisted.
	Load() (*domain.LifecycleState, error)
	Save(state domain.LifecycleState) error
	// Clear is a no-op when nothing is persisted.
	Clear() error
}

// LogArtifact is the plain-text file the workload writes into.
type LogArtifact interface {
	// Reset truncates path, creating it if needed.
	Reset(path string) error
	// Read returns the whole current content, or "" when path is missing.
	Read(path string) (string, error)
}
