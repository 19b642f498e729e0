// Package filestore persists controller state and handles the log artifact
// on a filesystem.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/melih/lighthouse-runner/internal/core/domain"
)

// record is the on-disk shape. PID is always null; it is kept so older
// readers of the file keep working.
type record struct {
	PID           *int    `json:"pid"`
	LogFile       *string `json:"log_file"`
	StartTime     *string `json:"start_time"`
	IsRunning     bool    `json:"is_running"`
	ContainerName string  `json:"container_name"`
}

// StateStore implements ports.StateStore as a JSON file.
type StateStore struct {
	fs   afero.Fs
	path string
}

// NewStateStore creates a store for the JSON file at path.
func NewStateStore(fs afero.Fs, path string) *StateStore {
	return &StateStore{fs: fs, path: path}
}

// Path returns the location of the state file.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the persisted state.
func (s *StateStore) Load() (*domain.LifecycleState, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}

	state := &domain.LifecycleState{
		IsRunning:     rec.IsRunning,
		ContainerName: rec.ContainerName,
	}
	if rec.LogFile != nil {
		state.LogFilePath = *rec.LogFile
	}
	if rec.StartTime != nil && *rec.StartTime != "" {
		t, err := time.ParseInLocation(domain.StartTimeLayout, *rec.StartTime, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: start_time: %v", domain.ErrCorruptState, err)
		}
		state.StartTime = &t
	}
	return state, nil
}

// Save replaces the state file. The new content is written to a temporary
// file in the same directory and renamed over the old one, so a reader never
// observes a partial write.
func (s *StateStore) Save(state domain.LifecycleState) error {
	rec := record{
		IsRunning:     state.IsRunning,
		ContainerName: state.ContainerName,
	}
	if state.LogFilePath != "" {
		logFile := state.LogFilePath
		rec.LogFile = &logFile
	}
	if state.StartTime != nil {
		start := state.StartTime.Format(domain.StartTimeLayout)
		rec.StartTime = &start
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	committed = true
	return nil
}

// Clear deletes the state file.
func (s *StateStore) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
