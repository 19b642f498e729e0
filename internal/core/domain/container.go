package domain

// ContainerStatus is the runtime's view of the managed container, reduced to
// the three cases the controller decides on.
type ContainerStatus string

const (
	ContainerAbsent  ContainerStatus = "absent"
	ContainerStopped ContainerStatus = "stopped"
	ContainerRunning ContainerStatus = "running"
)

// Container represents a container in the runtime (Docker, Podman, etc.).
// It is a handle resolved by name for a single operation and must not be
// kept across polls.
type Container struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Image  string          `json:"image"`
	Status ContainerStatus `json:"status"`
}

// Bind mounts a host path into the container.
type Bind struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// ContainerSpec describes the container to create when none exists.
type ContainerSpec struct {
	Image string
	Name  string
	Env   map[string]string
	Binds []Bind
}

// ExecResult is the outcome of a blocking in-container command.
// Inconclusive is set when the command could not be run at all; callers
// treat it like a non-zero exit.
type ExecResult struct {
	ExitCode     int
	Output       string
	Inconclusive bool
}

// Succeeded reports whether the command ran and exited with status 0.
func (r ExecResult) Succeeded() bool {
	return !r.Inconclusive && r.ExitCode == 0
}
