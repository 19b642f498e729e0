package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LogArtifact implements ports.LogArtifact.
type LogArtifact struct {
	fs afero.Fs
}

// NewLogArtifact creates a LogArtifact on fs.
func NewLogArtifact(fs afero.Fs) *LogArtifact {
	return &LogArtifact{fs: fs}
}

// Reset truncates the file in place instead of deleting it: a running
// container may already have it bind-mounted, and a new inode would not be
// visible inside the container.
func (a *LogArtifact) Reset(path string) error {
	if err := a.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := a.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
	if err != nil {
		return fmt.Errorf("failed to reset log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to reset log file: %w", err)
	}
	return nil
}

// Read returns the whole file.
func (a *LogArtifact) Read(path string) (string, error) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read log file: %w", err)
	}
	return string(data), nil
}
