// Package docker implements ports.RuntimeGateway with the Docker Engine SDK.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/melih/lighthouse-runner/internal/core/domain"
	"github.com/melih/lighthouse-runner/internal/core/ports"
)

// DefaultTimeout bounds every runtime call except image builds.
const DefaultTimeout = 30 * time.Second

// dockerAPI is the subset of *client.Client the adapter uses.
type dockerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerUnpause(ctx context.Context, containerID string) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerExecCreate(ctx context.Context, containerID string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecStart(ctx context.Context, execID string, config types.ExecStartCheck) error
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
}

// Adapter implements ports.RuntimeGateway using Docker SDK
type Adapter struct {
	cli     dockerAPI
	builder ports.BuilderService
	timeout time.Duration
	logger  *log.Logger
}

var _ ports.RuntimeGateway = (*Adapter)(nil)

// NewClient creates a Docker client from the environment (DOCKER_HOST etc.).
func NewClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return cli, nil
}

// NewAdapter creates a new Docker adapter instance. Image builds are
// delegated to builder. A zero timeout means DefaultTimeout.
func NewAdapter(cli *client.Client, builder ports.BuilderService, timeout time.Duration, logger *log.Logger) *Adapter {
	return newAdapter(cli, builder, timeout, logger)
}

func newAdapter(cli dockerAPI, builder ports.BuilderService, timeout time.Duration, logger *log.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{cli: cli, builder: builder, timeout: timeout, logger: logger}
}

// FindContainer inspects the container by name.
func (a *Adapter) FindContainer(ctx context.Context, name string) (domain.Container, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	inspect, err := a.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return domain.Container{}, fmt.Errorf("%w: %s", domain.ErrContainerNotFound, name)
		}
		return domain.Container{}, classify(err, domain.ErrRuntimeUnavailable)
	}
	return containerFromInspect(inspect), nil
}

// ContainerStatus returns ContainerAbsent when the container does not exist.
func (a *Adapter) ContainerStatus(ctx context.Context, name string) (domain.ContainerStatus, error) {
	c, err := a.FindContainer(ctx, name)
	if errors.Is(err, domain.ErrContainerNotFound) {
		return domain.ContainerAbsent, nil
	}
	if err != nil {
		return "", err
	}
	return c.Status, nil
}

// BuildImage delegates to the builder.
func (a *Adapter) BuildImage(ctx context.Context, buildContext, tag string) error {
	if _, err := a.builder.BuildImage(ctx, buildContext, tag); err != nil {
		return err
	}
	return nil
}

// CreateAndStart creates a container from spec and starts it.
func (a *Adapter) CreateAndStart(ctx context.Context, spec domain.ContainerSpec) (domain.Container, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.cli.ContainerCreate(ctx, &container.Config{
		Image: spec.Image,
		Env:   envList(spec.Env),
	}, &container.HostConfig{
		Binds: bindList(spec.Binds),
	}, nil, nil, spec.Name)
	if err != nil {
		return domain.Container{}, classify(err, domain.ErrCreateFailed)
	}
	for _, w := range resp.Warnings {
		a.logger.Warn("container create warning", "container", spec.Name, "warning", w)
	}

	if err := a.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Best-effort cleanup so the next launch does not find a half-made container.
		_ = a.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return domain.Container{}, classify(err, domain.ErrCreateFailed)
	}

	return domain.Container{
		ID:     resp.ID,
		Name:   spec.Name,
		Image:  spec.Image,
		Status: domain.ContainerRunning,
	}, nil
}

// StartExisting starts a stopped container, or unpauses a paused one.
func (a *Adapter) StartExisting(ctx context.Context, c domain.Container) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	inspect, err := a.cli.ContainerInspect(ctx, c.ID)
	if err != nil {
		return classify(err, domain.ErrStartFailed)
	}
	if inspect.ContainerJSONBase != nil && inspect.State != nil && inspect.State.Paused {
		if err := a.cli.ContainerUnpause(ctx, c.ID); err != nil {
			return classify(err, domain.ErrStartFailed)
		}
		return nil
	}
	if err := a.cli.ContainerStart(ctx, c.ID, container.StartOptions{}); err != nil {
		return classify(err, domain.ErrStartFailed)
	}
	return nil
}

// ExecBlocking runs cmd, collects its combined output and exit code. Any
// failure to run the command yields an inconclusive result.
func (a *Adapter) ExecBlocking(ctx context.Context, c domain.Container, cmd []string) domain.ExecResult {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	inconclusive := func(step string, err error) domain.ExecResult {
		a.logger.Debug("probe inconclusive", "container", c.Name, "step", step, "error", err)
		return domain.ExecResult{ExitCode: -1, Inconclusive: true}
	}

	created, err := a.cli.ContainerExecCreate(ctx, c.ID, types.ExecConfig{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return inconclusive("create", err)
	}

	attach, err := a.cli.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return inconclusive("attach", err)
	}
	var out bytes.Buffer
	_, err = stdcopy.StdCopy(&out, &out, attach.Reader)
	attach.Close()
	if err != nil {
		return inconclusive("read", err)
	}

	inspect, err := a.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return inconclusive("inspect", err)
	}
	if inspect.Running {
		return inconclusive("inspect", errors.New("exec still running after output closed"))
	}
	return domain.ExecResult{ExitCode: inspect.ExitCode, Output: out.String()}
}

// ExecDetached starts cmd inside the container and returns immediately.
func (a *Adapter) ExecDetached(ctx context.Context, c domain.Container, cmd []string, env map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	created, err := a.cli.ContainerExecCreate(ctx, c.ID, types.ExecConfig{
		Cmd:    cmd,
		Env:    envList(env),
		Detach: true,
	})
	if err != nil {
		return classify(err, domain.ErrExecFailed)
	}
	if err := a.cli.ContainerExecStart(ctx, created.ID, types.ExecStartCheck{Detach: true}); err != nil {
		return classify(err, domain.ErrExecFailed)
	}
	a.logger.Debug("exec started", "container", c.Name, "exec", shortID(created.ID), "cmd", strings.Join(cmd, " "))
	return nil
}

// RemoveContainer force-removes the container.
func (a *Adapter) RemoveContainer(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		return classify(err, domain.ErrRemoveFailed)
	}
	return nil
}

// --- helpers ---

// classify wraps err with ErrRuntimeUnavailable when the daemon could not be
// reached, and with kind otherwise.
func classify(err error, kind error) error {
	if client.IsErrConnectionFailed(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", domain.ErrRuntimeUnavailable, err.Error())
	}
	return fmt.Errorf("%w: %s", kind, err.Error())
}

func containerFromInspect(inspect types.ContainerJSON) domain.Container {
	c := domain.Container{
		Status: domain.ContainerStopped,
	}
	if inspect.ContainerJSONBase != nil {
		c.ID = inspect.ID
		c.Name = strings.TrimPrefix(inspect.Name, "/")
		if inspect.State != nil {
			c.Status = parseContainerStatus(inspect.State.Status)
		}
	}
	if inspect.Config != nil {
		c.Image = inspect.Config.Image
	}
	return c
}

// parseContainerStatus maps Docker's status string onto the controller's
// three cases. Only "running" counts as running; created, exited, paused,
// restarting and dead containers all need a start before exec.
func parseContainerStatus(s string) domain.ContainerStatus {
	if strings.EqualFold(s, "running") {
		return domain.ContainerRunning
	}
	return domain.ContainerStopped
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}

func bindList(binds []domain.Bind) []string {
	list := make([]string, 0, len(binds))
	for _, b := range binds {
		mode := "rw"
		if b.ReadOnly {
			mode = "ro"
		}
		list = append(list, fmt.Sprintf("%s:%s:%s", b.HostPath, b.ContainerPath, mode))
	}
	return list
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
