// Package app wires adapters into a lifecycle controller.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/melih/lighthouse-runner/internal/adapters/builder"
	"github.com/melih/lighthouse-runner/internal/adapters/docker"
	"github.com/melih/lighthouse-runner/internal/adapters/filestore"
	"github.com/melih/lighthouse-runner/internal/config"
	"github.com/melih/lighthouse-runner/internal/core/lifecycle"
)

// NewLogger creates a logger writing to w at the configured level.
func NewLogger(w io.Writer, prefix, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
	})
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// App holds the wired controller and what must be released with it.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Controller *lifecycle.Controller

	closers []io.Closer
}

// New initializes the adapters (infrastructure) and injects them into the
// controller. The controller recovers any persisted run before New returns.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	// 1. Docker client shared by the gateway and the builder
	cli, err := docker.NewClient()
	if err != nil {
		return nil, err
	}

	// 2. Adapters
	imageBuilder := builder.NewBuilderAdapter(cli, cfg.Build.Dockerfile, cfg.Runtime.BuildTimeout, logger.WithPrefix("builder"))
	gateway := docker.NewAdapter(cli, imageBuilder, cfg.Runtime.Timeout, logger.WithPrefix("docker"))

	fs := afero.NewOsFs()
	store := filestore.NewStateStore(fs, cfg.StateFile)
	logs := filestore.NewLogArtifact(fs)

	// 3. Controller
	ctrl, err := lifecycle.New(ctx, gateway, store, logs, cfg.Lifecycle(), lifecycle.WithLogger(logger))
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to initialize controller: %w", err)
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Controller: ctrl,
		closers:    []io.Closer{cli},
	}, nil
}

// Close releases the runtime connection.
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
