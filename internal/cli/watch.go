package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/melih/lighthouse-runner/internal/core/domain"
	"github.com/melih/lighthouse-runner/internal/core/ports"
)

func newWatchCommand(s *session) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the run and follow its log until it completes",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command) error {
			if interval <= 0 {
				interval = s.cfg.PollInterval
			}
			return watch(cmd.Context(), s.service, interval, cmd.OutOrStdout())
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (defaults to poll_interval from config)")
	return cmd
}

// watch polls ReadStatus every interval and prints log output as it grows.
// It returns once the run is completed or absent, or ctx is done.
func watch(ctx context.Context, svc ports.LifecycleService, interval time.Duration, out io.Writer) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var printed string
	for {
		status, err := svc.ReadStatus(ctx)
		if err != nil {
			return err
		}

		switch status.State {
		case domain.RunActive:
			if printed == "" && status.Logs == "" {
				fmt.Fprintf(out, "Workload running in %s, waiting for output...\n", status.ContainerName)
			}
			printed = printNew(out, printed, status.Logs)
		case domain.RunCompleted:
			printNew(out, printed, status.Logs)
			renderCompletion(out, status)
			return nil
		default:
			fmt.Fprintln(out, "No active run")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// printNew writes the part of current not yet printed. The whole content is
// reprinted when it no longer extends what was shown (the log was reset).
func printNew(out io.Writer, printed, current string) string {
	if strings.HasPrefix(current, printed) {
		fmt.Fprint(out, current[len(printed):])
	} else {
		fmt.Fprint(out, current)
	}
	return current
}
