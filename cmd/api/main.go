package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/melih/lighthouse-runner/internal/adapters/http"
	"github.com/melih/lighthouse-runner/internal/app"
	"github.com/melih/lighthouse-runner/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var configPath string
	root := &cobra.Command{
		Use:           "lighthouse-api",
		Short:         "Serve the workload lifecycle API over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a lighthouse YAML config file")

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := app.NewLogger(os.Stderr, "api", cfg.Log.Level)

	// 1. Initialize Adapters and the controller (recovers any persisted run)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// 2. Initialize HTTP Handlers, injecting the controller
	runHandler := http.NewRunHandler(a.Controller)

	// 3. Setup Framework (Fiber)
	server := fiber.New(fiber.Config{DisableStartupMessage: true})

	// 4. Define Routes
	v1 := server.Group("/api").Group("/v1")
	runHandler.Register(v1)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = server.Shutdown()
	}()

	// 5. Start Server
	logger.Info("server starting", "addr", cfg.HTTP.Addr)
	if err := server.Listen(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
