package filestore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-runner/internal/core/domain"
)

const statePath = "/srv/workload/process_state.json"

func TestStateStore_LoadMissing(t *testing.T) {
	s := NewStateStore(afero.NewMemMapFs(), statePath)

	state, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestStateStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewStateStore(afero.NewMemMapFs(), statePath)
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)

	want := domain.LifecycleState{
		IsRunning:     true,
		StartTime:     &start,
		LogFilePath:   "/srv/workload/app_host.log",
		ContainerName: "lighthouse-workload",
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsRunning)
	assert.Equal(t, want.LogFilePath, got.LogFilePath)
	assert.Equal(t, want.ContainerName, got.ContainerName)
	require.NotNil(t, got.StartTime)
	assert.True(t, start.Equal(*got.StartTime))
}

func TestStateStore_FileFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStateStore(fs, statePath)
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)

	require.NoError(t, s.Save(domain.LifecycleState{
		IsRunning:     true,
		StartTime:     &start,
		LogFilePath:   "/logs/app.log",
		ContainerName: "c1",
	}))

	data, err := afero.ReadFile(fs, statePath)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "pid")
	assert.Nil(t, raw["pid"])
	assert.Equal(t, "/logs/app.log", raw["log_file"])
	assert.Equal(t, "2026-01-02 03:04:05", raw["start_time"])
	assert.Equal(t, true, raw["is_running"])
	assert.Equal(t, "c1", raw["container_name"])
}

func TestStateStore_AbsentFieldsAreNull(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStateStore(fs, statePath)

	require.NoError(t, s.Save(domain.LifecycleState{ContainerName: "c1"}))

	data, err := afero.ReadFile(fs, statePath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pid":null,"log_file":null,"start_time":null,"is_running":false,"container_name":"c1"}`, string(data))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, got.StartTime)
	assert.Empty(t, got.LogFilePath)
}

func TestStateStore_ReadsLegacyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	legacy := `{"pid": null, "log_file": "/app/java_app/app_host.log", "start_time": "2025-11-30 18:00:01", "is_running": true, "container_name": "java-app-persistent"}`
	require.NoError(t, afero.WriteFile(fs, statePath, []byte(legacy), 0o644))

	got, err := NewStateStore(fs, statePath).Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "java-app-persistent", got.ContainerName)
	assert.Equal(t, "/app/java_app/app_host.log", got.LogFilePath)
	assert.Equal(t, "2025-11-30 18:00:01", got.StartTime.Format(domain.StartTimeLayout))
}

func TestStateStore_Corrupt(t *testing.T) {
	cases := map[string]string{
		"truncated json": `{"pid": null, "log_fi`,
		"bad start time": `{"pid": null, "start_time": "yesterday", "is_running": true, "container_name": "c"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, statePath, []byte(content), 0o644))

			state, err := NewStateStore(fs, statePath).Load()
			assert.ErrorIs(t, err, domain.ErrCorruptState)
			assert.Nil(t, state)
		})
	}
}

func TestStateStore_SaveLeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStateStore(fs, statePath)

	require.NoError(t, s.Save(domain.LifecycleState{IsRunning: true, ContainerName: "a"}))
	require.NoError(t, s.Save(domain.LifecycleState{IsRunning: true, ContainerName: "b"}))

	entries, err := afero.ReadDir(fs, "/srv/workload")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"process_state.json"}, names)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "b", got.ContainerName)
}

func TestStateStore_Clear(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStateStore(fs, statePath)

	require.NoError(t, s.Clear(), "clearing with nothing persisted")

	require.NoError(t, s.Save(domain.LifecycleState{IsRunning: true, ContainerName: "c"}))
	require.NoError(t, s.Clear())

	exists, err := afero.Exists(fs, statePath)
	require.NoError(t, err)
	assert.False(t, exists)
}
