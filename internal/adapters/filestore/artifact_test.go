package filestore

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogArtifact_ResetCreatesEmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := NewLogArtifact(fs)

	require.NoError(t, a.Reset("/data/logs/app_host.log"))

	content, err := a.Read("/data/logs/app_host.log")
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestLogArtifact_ResetTruncatesPreviousRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := NewLogArtifact(fs)
	path := "/data/app_host.log"
	require.NoError(t, afero.WriteFile(fs, path, []byte("[old] Loop 1: bye\n"), 0o644))

	require.NoError(t, a.Reset(path))

	content, err := a.Read(path)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestLogArtifact_ReadReturnsWholeContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := NewLogArtifact(fs)
	path := "/data/app_host.log"
	require.NoError(t, a.Reset(path))

	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("line 1\n")
	require.NoError(t, err)

	first, err := a.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "line 1\n", first)

	_, err = f.WriteString("line 2\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	second, err := a.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2\n", second)
}

func TestLogArtifact_ReadMissing(t *testing.T) {
	content, err := NewLogArtifact(afero.NewMemMapFs()).Read("/nope.log")
	require.NoError(t, err)
	assert.Empty(t, content)
}
