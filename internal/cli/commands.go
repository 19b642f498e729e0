package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melih/lighthouse-runner/internal/core/domain"
)

func newLaunchCommand(s *session) *cobra.Command {
	var (
		message    string
		iterations int
		logFile    string
	)
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Build the image and start the workload",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command) error {
			if logFile == "" {
				logFile = s.cfg.LogFile
			}
			res, err := s.service.Launch(cmd.Context(), domain.LaunchRequest{
				LogMessage:  message,
				Iterations:  iterations,
				LogFilePath: logFile,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s container: %s\n", actionVerb(res.Action), res.ContainerName)
			fmt.Fprintf(out, "Workload started at %s\n", res.StartTime.Format(domain.StartTimeLayout))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&message, "message", "m", "Hello from Docker!", "message the workload logs on every iteration")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 20, fmt.Sprintf("number of iterations (%d-%d)", domain.MinIterations, domain.MaxIterations))
	cmd.Flags().StringVar(&logFile, "log-file", "", "host log file (defaults to log_file from config)")
	return cmd
}

func newStatusCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current run and its log",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command) error {
			status, err := s.service.ReadStatus(cmd.Context())
			if err != nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), status)
			return nil
		}),
	}
}

func newStopCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Kill the running workload",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command) error {
			if err := s.service.Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Application stopped")
			return nil
		}),
	}
}

func newRemoveCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Force-remove the container (only when no run is active)",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command) error {
			if err := s.service.Remove(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Container removed")
			return nil
		}),
	}
}

func newContainerCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "container",
		Short: "Show the managed container's runtime status",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command) error {
			status, err := s.service.ContainerStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.cfg.ContainerName, status)
			return nil
		}),
	}
}

func actionVerb(a domain.ContainerAction) string {
	switch a {
	case domain.ActionReused:
		return "Reusing running"
	case domain.ActionStarted:
		return "Started stopped"
	case domain.ActionCreated:
		return "Created new"
	default:
		return string(a)
	}
}
