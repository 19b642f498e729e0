package lifecycle

import (
	"context"
	"fmt"
	"slices"

	"github.com/melih/lighthouse-runner/internal/core/domain"
)

// fakeGateway satisfies ports.RuntimeGateway for testing.
type fakeGateway struct {
	containers map[string]*domain.Container

	workloadRunning   bool
	probeInconclusive bool

	findErr   error
	buildErr  error
	createErr error
	startErr  error
	execErr   error
	removeErr error

	calls   []string
	created []domain.ContainerSpec
	execs   [][]string
	execEnv []map[string]string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{containers: make(map[string]*domain.Container)}
}

func (g *fakeGateway) withContainer(name string, status domain.ContainerStatus) *fakeGateway {
	g.containers[name] = &domain.Container{ID: "id-" + name, Name: name, Image: testImage, Status: status}
	return g
}

func (g *fakeGateway) FindContainer(_ context.Context, name string) (domain.Container, error) {
	g.calls = append(g.calls, "find")
	if g.findErr != nil {
		return domain.Container{}, g.findErr
	}
	c, ok := g.containers[name]
	if !ok {
		return domain.Container{}, fmt.Errorf("%w: %s", domain.ErrContainerNotFound, name)
	}
	return *c, nil
}

func (g *fakeGateway) ContainerStatus(_ context.Context, name string) (domain.ContainerStatus, error) {
	g.calls = append(g.calls, "status")
	if g.findErr != nil {
		return "", g.findErr
	}
	c, ok := g.containers[name]
	if !ok {
		return domain.ContainerAbsent, nil
	}
	return c.Status, nil
}

func (g *fakeGateway) BuildImage(_ context.Context, _, _ string) error {
	g.calls = append(g.calls, "build")
	return g.buildErr
}

func (g *fakeGateway) CreateAndStart(_ context.Context, spec domain.ContainerSpec) (domain.Container, error) {
	g.calls = append(g.calls, "create")
	if g.createErr != nil {
		return domain.Container{}, g.createErr
	}
	g.created = append(g.created, spec)
	g.withContainer(spec.Name, domain.ContainerRunning)
	return *g.containers[spec.Name], nil
}

func (g *fakeGateway) StartExisting(_ context.Context, c domain.Container) error {
	g.calls = append(g.calls, "start")
	if g.startErr != nil {
		return g.startErr
	}
	g.containers[c.Name].Status = domain.ContainerRunning
	return nil
}

func (g *fakeGateway) ExecBlocking(_ context.Context, _ domain.Container, _ []string) domain.ExecResult {
	g.calls = append(g.calls, "probe")
	if g.probeInconclusive {
		return domain.ExecResult{ExitCode: -1, Inconclusive: true}
	}
	if g.workloadRunning {
		return domain.ExecResult{ExitCode: 0, Output: "42\n"}
	}
	return domain.ExecResult{ExitCode: 1}
}

func (g *fakeGateway) ExecDetached(_ context.Context, _ domain.Container, cmd []string, env map[string]string) error {
	g.calls = append(g.calls, "exec")
	g.execs = append(g.execs, cmd)
	g.execEnv = append(g.execEnv, env)
	if g.execErr != nil {
		return g.execErr
	}
	switch {
	case slices.Equal(cmd, testConfig().WorkloadCommand):
		g.workloadRunning = true
	case slices.Equal(cmd, testConfig().KillCommand):
		g.workloadRunning = false
	}
	return nil
}

func (g *fakeGateway) RemoveContainer(_ context.Context, name string) error {
	g.calls = append(g.calls, "remove")
	if g.removeErr != nil {
		return g.removeErr
	}
	delete(g.containers, name)
	return nil
}

// failingStore wraps a store and fails Clear or Save on demand.
type failingStore struct {
	loadErr  error
	saveErr  error
	clearErr error
}

func (s *failingStore) Load() (*domain.LifecycleState, error) { return nil, s.loadErr }
func (s *failingStore) Save(domain.LifecycleState) error     { return s.saveErr }
func (s *failingStore) Clear() error                         { return s.clearErr }
