// Package workload is the long-running program executed inside the managed
// container. It appends one timestamped line per iteration to a log file.
package workload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/melih/lighthouse-runner/internal/core/domain"
)

// Defaults used when the environment leaves a setting unset.
const (
	DefaultMessage    = "Default log message"
	DefaultIterations = 10
	DefaultLogPath    = "/app/app.log"

	// EnvLogFile overrides the log path; the controller never sets it.
	EnvLogFile = "LOG_FILE"
)

// Config controls one workload run.
type Config struct {
	Message    string
	Iterations int
	LogPath    string
	Interval   time.Duration
}

// ConfigFromEnv reads the workload settings through lookupEnv (os.LookupEnv).
// Only an unset LOG_MESSAGE falls back to the default; an empty one is
// logged as empty. A malformed ITERATIONS value falls back to the default.
func ConfigFromEnv(lookupEnv func(string) (string, bool)) Config {
	cfg := Config{
		Message:    DefaultMessage,
		Iterations: DefaultIterations,
		LogPath:    DefaultLogPath,
		Interval:   time.Second,
	}
	if v, ok := lookupEnv(domain.EnvLogMessage); ok {
		cfg.Message = v
	}
	if v, ok := lookupEnv(domain.EnvIterations); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Iterations = n
		}
	}
	if v, ok := lookupEnv(EnvLogFile); ok && v != "" {
		cfg.LogPath = v
	}
	return cfg
}

// Runner executes the workload loop.
type Runner struct {
	fs     afero.Fs
	out    io.Writer
	logger *log.Logger
	now    func() time.Time
}

// NewRunner creates a Runner writing log lines to fs and echoing them to out.
func NewRunner(fs afero.Fs, out io.Writer, logger *log.Logger) *Runner {
	return &Runner{fs: fs, out: out, logger: logger, now: time.Now}
}

// Run appends cfg.Iterations entries to cfg.LogPath, one per cfg.Interval.
// It stops early when ctx is done.
func (r *Runner) Run(ctx context.Context, cfg Config) error {
	r.logger.Info("Starting workload", "iterations", cfg.Iterations, "log_file", cfg.LogPath)

	if err := r.fs.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := r.fs.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	for i := 1; i <= cfg.Iterations; i++ {
		entry := fmt.Sprintf("[%s] Loop %d: %s\n", r.now().Format(domain.StartTimeLayout), i, cfg.Message)
		if _, err := io.WriteString(f, entry); err != nil {
			return fmt.Errorf("failed to write log entry: %w", err)
		}
		fmt.Fprint(r.out, entry)

		if i == cfg.Iterations {
			break
		}
		select {
		case <-ctx.Done():
			r.logger.Warn("Workload interrupted", "completed", i)
			return nil
		case <-time.After(cfg.Interval):
		}
	}

	r.logger.Info("Workload finished")
	return nil
}
