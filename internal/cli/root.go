// Package cli implements the lighthousectl commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/melih/lighthouse-runner/internal/app"
	"github.com/melih/lighthouse-runner/internal/config"
	"github.com/melih/lighthouse-runner/internal/core/ports"
)

// ServiceFactory builds the lifecycle service for one command invocation.
// The returned func releases it.
type ServiceFactory func(ctx context.Context, cfg *config.Config, logger *log.Logger) (ports.LifecycleService, func() error, error)

// DockerServiceFactory wires the Docker-backed controller.
func DockerServiceFactory(ctx context.Context, cfg *config.Config, logger *log.Logger) (ports.LifecycleService, func() error, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Controller, a.Close, nil
}

// session is the per-invocation state shared by subcommands.
type session struct {
	factory    ServiceFactory
	configPath string
	logLevel   string
	stderr     io.Writer

	cfg     *config.Config
	service ports.LifecycleService
	release func() error
}

// NewRootCommand creates the lighthousectl command tree.
func NewRootCommand(factory ServiceFactory) *cobra.Command {
	s := &session{factory: factory, stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "lighthousectl",
		Short: "Run and observe a workload in a persistent container",
		Long: `lighthousectl manages one named container running a long-lived workload.

State is persisted between invocations, so a run launched by one command can
be observed, followed and stopped by later ones.

Examples:
  # Build the image and start the workload
  lighthousectl launch --message "Hello from Docker!" --iterations 20

  # Follow its output until it completes
  lighthousectl watch

  # Stop it
  lighthousectl stop
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&s.configPath, "config", "", "path to a lighthouse YAML config file")
	root.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newLaunchCommand(s),
		newStatusCommand(s),
		newWatchCommand(s),
		newStopCommand(s),
		newRemoveCommand(s),
		newContainerCommand(s),
	)
	return root
}

func (s *session) open(ctx context.Context) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	if s.logLevel != "" {
		cfg.Log.Level = s.logLevel
	}
	s.cfg = cfg

	logger := app.NewLogger(s.stderr, "lighthousectl", cfg.Log.Level)
	svc, release, err := s.factory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	s.service, s.release = svc, release
	return nil
}

// run adapts fn to a cobra RunE and releases the service when it returns.
func (s *session) run(fn func(cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		defer func() {
			if err := s.close(); err != nil {
				fmt.Fprintf(s.stderr, "warning: failed to release runtime client: %v\n", err)
			}
		}()
		return fn(cmd)
	}
}

func (s *session) close() error {
	if s.release == nil {
		return nil
	}
	err := s.release()
	s.release = nil
	return err
}
