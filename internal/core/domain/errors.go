package domain

import "errors"

// Runtime failures. Gateway implementations wrap them with the detail
// reported by the runtime, e.g. fmt.Errorf("%w: %s", ErrCreateFailed, msg).
var (
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
	ErrContainerNotFound  = errors.New("container not found")
	ErrBuildFailed        = errors.New("image build failed")
	ErrCreateFailed       = errors.New("container create failed")
	ErrStartFailed        = errors.New("container start failed")
	ErrExecFailed         = errors.New("exec failed")
	ErrRemoveFailed       = errors.New("container remove failed")
)

// ErrCorruptState is returned by a state store whose persisted object exists
// but cannot be decoded.
var ErrCorruptState = errors.New("corrupt state file")

// Controller guards.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrRunActive      = errors.New("a run is already active")
	ErrNoActiveRun    = errors.New("no active run")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidRequest, "invalid_request"},
	{ErrRunActive, "run_active"},
	{ErrNoActiveRun, "no_active_run"},
	{ErrRuntimeUnavailable, "runtime_unavailable"},
	{ErrContainerNotFound, "container_not_found"},
	{ErrBuildFailed, "build_failed"},
	{ErrCreateFailed, "create_failed"},
	{ErrStartFailed, "start_failed"},
	{ErrExecFailed, "exec_failed"},
	{ErrRemoveFailed, "remove_failed"},
}

// ErrorKind returns a stable tag for err, or "internal" when err does not
// wrap one of the sentinels above.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
