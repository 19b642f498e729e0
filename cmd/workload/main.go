package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/melih/lighthouse-runner/internal/workload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "workload",
	})
	cfg := workload.ConfigFromEnv(os.LookupEnv)

	if err := workload.NewRunner(afero.NewOsFs(), os.Stdout, logger).Run(ctx, cfg); err != nil {
		logger.Error("Workload failed", "err", err)
		os.Exit(1)
	}
}
