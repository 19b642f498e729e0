package domain

import "time"

// StartTimeLayout is the on-disk format of LifecycleState.StartTime.
const StartTimeLayout = "2006-01-02 15:04:05"

// Iteration bounds accepted by a launch request.
const (
	MinIterations = 1
	MaxIterations = 400
)

// Workload environment variables.
const (
	EnvLogMessage = "LOG_MESSAGE"
	EnvIterations = "ITERATIONS"
)

// LifecycleState is the controller's persisted belief about the current run.
type LifecycleState struct {
	IsRunning     bool
	StartTime     *time.Time
	LogFilePath   string
	ContainerName string
}

// ContainerAction records how the container was obtained for a launch.
type ContainerAction string

const (
	ActionReused  ContainerAction = "reused"
	ActionStarted ContainerAction = "started"
	ActionCreated ContainerAction = "created"
)

// LaunchRequest holds the caller inputs of a launch.
type LaunchRequest struct {
	LogMessage  string `json:"log_message"`
	Iterations  int    `json:"iterations"`
	LogFilePath string `json:"log_file"`
}

// LaunchResult is returned by a successful launch.
type LaunchResult struct {
	Action        ContainerAction `json:"action"`
	ContainerName string          `json:"container_name"`
	StartTime     time.Time       `json:"start_time"`
}

// RunState is what a status read reports.
type RunState string

const (
	RunActive    RunState = "active"
	RunCompleted RunState = "completed"
	RunAbsent    RunState = "absent"
)

// CompletionReason tells apart the two ways a run can complete. Both are
// reported as RunCompleted.
type CompletionReason string

const (
	ReasonContainerStopped CompletionReason = "container_stopped"
	ReasonWorkloadExited   CompletionReason = "workload_exited"
)

// RunStatus is the result of a status read.
type RunStatus struct {
	State         RunState         `json:"state"`
	ContainerName string           `json:"container_name,omitempty"`
	StartTime     *time.Time       `json:"start_time,omitempty"`
	LogFilePath   string           `json:"log_file,omitempty"`
	Logs          string           `json:"logs,omitempty"`
	Reason        CompletionReason `json:"reason,omitempty"`
}
