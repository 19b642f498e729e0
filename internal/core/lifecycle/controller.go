// Package lifecycle implements the controller that owns a single named
// container and the workload run inside it.
//
// The controller keeps a belief about the current run, persists it through a
// ports.StateStore, and re-derives ground truth from the runtime gateway on
// every status read. It has no background goroutines: callers poll.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/melih/lighthouse-runner/internal/core/domain"
	"github.com/melih/lighthouse-runner/internal/core/ports"
)

// Config describes the managed container and workload.
type Config struct {
	ContainerName string
	Image         string
	BuildContext  string

	// WorkloadCommand is executed detached inside the container.
	WorkloadCommand []string
	// ProbeCommand exits 0 while the workload process is alive.
	ProbeCommand []string
	// KillCommand force-kills the workload.
	KillCommand []string
	// WorkloadLogPath is where the workload writes inside the container; the
	// host log file is bind-mounted there.
	WorkloadLogPath string
}

// Validate checks that every field needed by the controller is set.
func (c Config) Validate() error {
	var missing []string
	if c.ContainerName == "" {
		missing = append(missing, "container name")
	}
	if c.Image == "" {
		missing = append(missing, "image")
	}
	if c.BuildContext == "" {
		missing = append(missing, "build context")
	}
	if len(c.WorkloadCommand) == 0 {
		missing = append(missing, "workload command")
	}
	if len(c.ProbeCommand) == 0 {
		missing = append(missing, "probe command")
	}
	if len(c.KillCommand) == 0 {
		missing = append(missing, "kill command")
	}
	if c.WorkloadLogPath == "" {
		missing = append(missing, "workload log path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("lifecycle config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller implements ports.LifecycleService.
type Controller struct {
	mu sync.Mutex

	gateway ports.RuntimeGateway
	store   ports.StateStore
	logs    ports.LogArtifact
	cfg     Config
	logger  *log.Logger
	now     func() time.Time

	// state is nil when no run is believed active.
	state *domain.LifecycleState
	// pending holds a completion found while recovering, until the first
	// ReadStatus delivers it.
	pending *domain.RunStatus
}

var _ ports.LifecycleService = (*Controller)(nil)

// New creates a controller and recovers any persisted run. A recovered run is
// reconciled against the runtime once before New returns.
func New(ctx context.Context, gw ports.RuntimeGateway, store ports.StateStore, logs ports.LogArtifact, cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		gateway: gw,
		store:   store,
		logs:    logs,
		cfg:     cfg,
		logger:  log.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.recover(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) recover(ctx context.Context) error {
	state, err := c.store.Load()
	if errors.Is(err, domain.ErrCorruptState) {
		c.logger.Warn("discarding unreadable state", "error", err)
		return c.store.Clear()
	}
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if state == nil {
		return nil
	}
	if !state.IsRunning || state.ContainerName == "" {
		c.logger.Debug("discarding inactive state", "container", state.ContainerName)
		return c.store.Clear()
	}

	c.state = state
	c.logger.Info("recovered run", "container", state.ContainerName, "log_file", state.LogFilePath)

	status, err := c.reconcile(ctx)
	if err != nil {
		// The belief stays unverified; every ReadStatus reconciles before
		// reporting it.
		c.logger.Warn("could not verify recovered run", "container", state.ContainerName, "error", err)
		return nil
	}
	if status.State == domain.RunCompleted {
		c.pending = &status
	}
	return nil
}

// Launch builds the image, resolves the container and starts the workload.
func (c *Controller) Launch(ctx context.Context, req domain.LaunchRequest) (domain.LaunchResult, error) {
	if err := validateLaunch(req); err != nil {
		return domain.LaunchResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != nil {
		return domain.LaunchResult{}, fmt.Errorf("launch %s: %w", c.state.ContainerName, domain.ErrRunActive)
	}
	c.pending = nil

	logPath, err := filepath.Abs(req.LogFilePath)
	if err != nil {
		return domain.LaunchResult{}, fmt.Errorf("%w: log file: %v", domain.ErrInvalidRequest, err)
	}
	if err := c.logs.Reset(logPath); err != nil {
		return domain.LaunchResult{}, fmt.Errorf("failed to prepare log file: %w", err)
	}

	c.logger.Info("building image", "image", c.cfg.Image, "context", c.cfg.BuildContext)
	if err := c.gateway.BuildImage(ctx, c.cfg.BuildContext, c.cfg.Image); err != nil {
		c.logger.Error("launch failed", "step", "build", "error", err)
		return domain.LaunchResult{}, err
	}

	env := workloadEnv(req)
	cont, action, err := c.resolveContainer(ctx, env, logPath)
	if err != nil {
		c.logger.Error("launch failed", "step", "container", "error", err)
		return domain.LaunchResult{}, err
	}
	c.logger.Info("container resolved", "container", cont.Name, "action", action)

	if err := c.gateway.ExecDetached(ctx, cont, c.cfg.WorkloadCommand, env); err != nil {
		c.logger.Error("launch failed", "step", "exec", "error", err)
		return domain.LaunchResult{}, err
	}

	start := c.now().Truncate(time.Second)
	state := domain.LifecycleState{
		IsRunning:     true,
		StartTime:     &start,
		LogFilePath:   logPath,
		ContainerName: c.cfg.ContainerName,
	}
	c.state = &state

	result := domain.LaunchResult{
		Action:        action,
		ContainerName: c.cfg.ContainerName,
		StartTime:     start,
	}
	if err := c.store.Save(state); err != nil {
		c.logger.Error("workload started but state was not persisted", "error", err)
		return result, fmt.Errorf("workload started but state was not persisted: %w", err)
	}
	c.logger.Info("workload started", "container", c.cfg.ContainerName, "iterations", req.Iterations)
	return result, nil
}

// resolveContainer reuses a running container, starts a stopped one, or
// creates a new one.
func (c *Controller) resolveContainer(ctx context.Context, env map[string]string, logPath string) (domain.Container, domain.ContainerAction, error) {
	name := c.cfg.ContainerName

	cont, err := c.gateway.FindContainer(ctx, name)
	if errors.Is(err, domain.ErrContainerNotFound) {
		cont, err = c.gateway.CreateAndStart(ctx, domain.ContainerSpec{
			Image: c.cfg.Image,
			Name:  name,
			Env:   env,
			Binds: []domain.Bind{{HostPath: logPath, ContainerPath: c.cfg.WorkloadLogPath}},
		})
		if err != nil {
			return domain.Container{}, "", err
		}
		return cont, domain.ActionCreated, nil
	}
	if err != nil {
		return domain.Container{}, "", err
	}

	if cont.Status == domain.ContainerRunning {
		return cont, domain.ActionReused, nil
	}
	if err := c.gateway.StartExisting(ctx, cont); err != nil {
		return domain.Container{}, "", err
	}
	return cont, domain.ActionStarted, nil
}

// ReadStatus reports the current run. An active belief is always checked
// against the runtime first; if the container or the workload is gone the
// persisted state is cleared and the run is reported completed.
func (c *Controller) ReadStatus(ctx context.Context) (domain.RunStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		if c.pending != nil {
			status := *c.pending
			c.pending = nil
			return status, nil
		}
		return domain.RunStatus{State: domain.RunAbsent, ContainerName: c.cfg.ContainerName}, nil
	}
	return c.reconcile(ctx)
}

// reconcile must be called with c.state set.
func (c *Controller) reconcile(ctx context.Context) (domain.RunStatus, error) {
	name := c.state.ContainerName

	cont, err := c.gateway.FindContainer(ctx, name)
	if errors.Is(err, domain.ErrContainerNotFound) {
		return c.complete(domain.ReasonContainerStopped), nil
	}
	if err != nil {
		return domain.RunStatus{}, fmt.Errorf("failed to check container %s: %w", name, err)
	}
	if cont.Status != domain.ContainerRunning {
		return c.complete(domain.ReasonContainerStopped), nil
	}

	if probe := c.gateway.ExecBlocking(ctx, cont, c.cfg.ProbeCommand); !probe.Succeeded() {
		return c.complete(domain.ReasonWorkloadExited), nil
	}

	return domain.RunStatus{
		State:         domain.RunActive,
		ContainerName: name,
		StartTime:     c.state.StartTime,
		LogFilePath:   c.state.LogFilePath,
		Logs:          c.readLogs(c.state.LogFilePath),
	}, nil
}

func (c *Controller) complete(reason domain.CompletionReason) domain.RunStatus {
	status := domain.RunStatus{
		State:         domain.RunCompleted,
		ContainerName: c.state.ContainerName,
		StartTime:     c.state.StartTime,
		LogFilePath:   c.state.LogFilePath,
		Logs:          c.readLogs(c.state.LogFilePath),
		Reason:        reason,
	}
	c.logger.Info("run completed", "container", status.ContainerName, "reason", reason)
	c.clearState()
	return status
}

func (c *Controller) clearState() {
	c.state = nil
	if err := c.store.Clear(); err != nil {
		c.logger.Error("failed to clear state", "error", err)
	}
}

func (c *Controller) readLogs(path string) string {
	if path == "" {
		return ""
	}
	content, err := c.logs.Read(path)
	if err != nil {
		c.logger.Warn("failed to read logs", "path", path, "error", err)
		return ""
	}
	return content
}

// Stop sends the kill command without waiting for it and forgets the run.
// The persisted state is cleared even when the runtime reports a failure;
// the next status read reconciles with whatever actually happened.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == nil {
		return domain.ErrNoActiveRun
	}
	name := c.state.ContainerName

	cont, err := c.gateway.FindContainer(ctx, name)
	if err == nil {
		err = c.gateway.ExecDetached(ctx, cont, c.cfg.KillCommand, nil)
	}
	c.clearState()
	c.pending = nil

	if err != nil {
		c.logger.Error("stop failed", "container", name, "error", err)
		return fmt.Errorf("failed to stop workload in %s: %w", name, err)
	}
	c.logger.Info("workload stopped", "container", name)
	return nil
}

// Remove force-removes the container. It is refused while a run is active.
func (c *Controller) Remove(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != nil {
		return fmt.Errorf("cannot remove %s: %w", c.state.ContainerName, domain.ErrRunActive)
	}
	if err := c.gateway.RemoveContainer(ctx, c.cfg.ContainerName); err != nil {
		c.logger.Error("remove failed", "container", c.cfg.ContainerName, "error", err)
		return err
	}
	c.logger.Info("container removed", "container", c.cfg.ContainerName)
	return nil
}

// ContainerStatus reports the managed container's runtime status.
func (c *Controller) ContainerStatus(ctx context.Context) (domain.ContainerStatus, error) {
	return c.gateway.ContainerStatus(ctx, c.cfg.ContainerName)
}

func validateLaunch(req domain.LaunchRequest) error {
	if req.Iterations < domain.MinIterations || req.Iterations > domain.MaxIterations {
		return fmt.Errorf("%w: iterations must be between %d and %d, got %d",
			domain.ErrInvalidRequest, domain.MinIterations, domain.MaxIterations, req.Iterations)
	}
	if strings.TrimSpace(req.LogFilePath) == "" {
		return fmt.Errorf("%w: log file path is required", domain.ErrInvalidRequest)
	}
	return nil
}

func workloadEnv(req domain.LaunchRequest) map[string]string {
	return map[string]string{
		domain.EnvLogMessage: req.LogMessage,
		domain.EnvIterations: strconv.Itoa(req.Iterations),
	}
}
