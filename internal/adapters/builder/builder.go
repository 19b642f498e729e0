// Package builder builds the workload image from a local directory or a git
// repository.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/moby/patternmatcher/ignorefile"

	"github.com/melih/lighthouse-runner/internal/core/domain"
	"github.com/melih/lighthouse-runner/internal/core/ports"
)

// DefaultTimeout bounds a whole build, clone included.
const DefaultTimeout = 10 * time.Minute

type imageBuilder interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
}

type Adapter struct {
	cli        imageBuilder
	dockerfile string
	timeout    time.Duration
	logger     *log.Logger
}

var _ ports.BuilderService = (*Adapter)(nil)

// NewBuilderAdapter creates a builder. An empty dockerfile means "Dockerfile"
// and a zero timeout means DefaultTimeout.
func NewBuilderAdapter(cli *client.Client, dockerfile string, timeout time.Duration, logger *log.Logger) *Adapter {
	return newAdapter(cli, dockerfile, timeout, logger)
}

func newAdapter(cli imageBuilder, dockerfile string, timeout time.Duration, logger *log.Logger) *Adapter {
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{cli: cli, dockerfile: dockerfile, timeout: timeout, logger: logger}
}

// BuildImage builds a Docker image from source, which is either a local
// directory or a git URL (optionally suffixed with #branch).
func (a *Adapter) BuildImage(ctx context.Context, source string, imageName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	dir := source
	if isGitSource(source) {
		// 1. Clone into a temporary directory
		tmpDir, err := os.MkdirTemp("", "lighthouse-build-*")
		if err != nil {
			return "", fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir) // Clean up after build

		if err := a.clone(ctx, source, tmpDir); err != nil {
			return "", fmt.Errorf("%w: clone %s: %s", domain.ErrBuildFailed, source, err.Error())
		}
		dir = tmpDir
	} else if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("%w: build context %s is not a directory", domain.ErrBuildFailed, dir)
	}

	// 2. Create Build Context (Tar)
	excludes, err := readDockerignore(dir)
	if err != nil {
		return "", fmt.Errorf("%w: read .dockerignore: %s", domain.ErrBuildFailed, err.Error())
	}
	tar, err := archive.TarWithOptions(dir, &archive.TarOptions{ExcludePatterns: excludes})
	if err != nil {
		return "", fmt.Errorf("%w: create build context: %s", domain.ErrBuildFailed, err.Error())
	}
	defer tar.Close()

	// 3. Build Docker Image
	a.logger.Info("building image", "image", imageName, "dockerfile", a.dockerfile)
	resp, err := a.cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       []string{imageName},
		Dockerfile: a.dockerfile,
		Remove:     true, // Remove intermediate containers
	})
	if err != nil {
		if client.IsErrConnectionFailed(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrRuntimeUnavailable, err.Error())
		}
		return "", fmt.Errorf("%w: %s", domain.ErrBuildFailed, err.Error())
	}
	defer resp.Body.Close()

	// The build only finishes once the body is drained; errors arrive
	// in-band as JSON messages.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, logWriter{a.logger}, 0, false, nil); err != nil {
		var jerr *jsonmessage.JSONError
		if errors.As(err, &jerr) {
			return "", fmt.Errorf("%w: %s", domain.ErrBuildFailed, jerr.Message)
		}
		return "", fmt.Errorf("%w: %s", domain.ErrBuildFailed, err.Error())
	}

	return imageName, nil
}

func (a *Adapter) clone(ctx context.Context, source, dir string) error {
	url, ref := splitGitRef(source)
	a.logger.Info("cloning build context", "url", url, "ref", ref)

	opts := &git.CloneOptions{
		URL:      url,
		Progress: logWriter{a.logger},
		Depth:    1, // Shallow clone for speed
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
		opts.SingleBranch = true
	}
	_, err := git.PlainCloneContext(ctx, dir, false, opts)
	return err
}

// readDockerignore returns the exclude patterns of dir/.dockerignore, if any.
func readDockerignore(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, ".dockerignore"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ignorefile.ReadAll(f)
}

func isGitSource(source string) bool {
	for _, prefix := range []string{"https://", "http://", "git://", "ssh://", "git@"} {
		if strings.HasPrefix(source, prefix) {
			return true
		}
	}
	url, _ := splitGitRef(source)
	return strings.HasSuffix(url, ".git")
}

func splitGitRef(source string) (url, ref string) {
	url, ref, _ = strings.Cut(source, "#")
	return url, ref
}

// logWriter forwards build and clone progress to the debug log.
type logWriter struct {
	logger *log.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.logger.Debug(line)
		}
	}
	return len(p), nil
}
