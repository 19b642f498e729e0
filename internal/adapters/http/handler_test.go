package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-runner/internal/core/domain"
)

type stubService struct {
	launchReq domain.LaunchRequest
	launchRes domain.LaunchResult
	launchErr error
	status    domain.RunStatus
	statusErr error
	stopErr   error
	removeErr error
	container domain.ContainerStatus
}

func (s *stubService) Launch(_ context.Context, req domain.LaunchRequest) (domain.LaunchResult, error) {
	s.launchReq = req
	return s.launchRes, s.launchErr
}

func (s *stubService) ReadStatus(context.Context) (domain.RunStatus, error) {
	return s.status, s.statusErr
}

func (s *stubService) Stop(context.Context) error   { return s.stopErr }
func (s *stubService) Remove(context.Context) error { return s.removeErr }

func (s *stubService) ContainerStatus(context.Context) (domain.ContainerStatus, error) {
	return s.container, nil
}

func newTestApp(svc *stubService) *fiber.App {
	app := fiber.New()
	NewRunHandler(svc).Register(app.Group("/api/v1"))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestLaunch(t *testing.T) {
	svc := &stubService{launchRes: domain.LaunchResult{
		Action:        domain.ActionCreated,
		ContainerName: "lighthouse-workload",
		StartTime:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
	app := newTestApp(svc)

	code, body := do(t, app, "POST", "/api/v1/run", `{"log_message":"hi","iterations":5,"log_file":"/tmp/app.log"}`)
	assert.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, "created", body["action"])
	assert.Equal(t, "lighthouse-workload", body["container_name"])
	assert.Equal(t, domain.LaunchRequest{LogMessage: "hi", Iterations: 5, LogFilePath: "/tmp/app.log"}, svc.launchReq)
}

func TestLaunch_BodyDecodesIntoLaunchRequest(t *testing.T) {
	svc := &stubService{launchRes: domain.LaunchResult{Action: domain.ActionReused}}
	app := newTestApp(svc)

	code, _ := do(t, app, "POST", "/api/v1/run", `{"log_message":"","iterations":400,"log_file":"out/app.log","extra":true}`)
	assert.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, domain.LaunchRequest{LogMessage: "", Iterations: 400, LogFilePath: "out/app.log"}, svc.launchReq)
}

func TestLaunch_BadBody(t *testing.T) {
	app := newTestApp(&stubService{})

	code, body := do(t, app, "POST", "/api/v1/run", `{"iterations":`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "invalid_request", body["kind"])
}

func TestLaunch_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		kind string
	}{
		{fmt.Errorf("%w: iterations must be between 1 and 400, got 401", domain.ErrInvalidRequest), fiber.StatusBadRequest, "invalid_request"},
		{fmt.Errorf("launch x: %w", domain.ErrRunActive), fiber.StatusConflict, "run_active"},
		{fmt.Errorf("%w: dial unix /var/run/docker.sock", domain.ErrRuntimeUnavailable), fiber.StatusServiceUnavailable, "runtime_unavailable"},
		{fmt.Errorf("%w: no such file", domain.ErrBuildFailed), fiber.StatusBadGateway, "build_failed"},
		{fmt.Errorf("%w: conflict", domain.ErrCreateFailed), fiber.StatusBadGateway, "create_failed"},
		{errors.New("failed to prepare log file: permission denied"), fiber.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			app := newTestApp(&stubService{launchErr: tc.err})
			code, body := do(t, app, "POST", "/api/v1/run", `{"iterations":5,"log_file":"/tmp/a.log"}`)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.kind, body["kind"])
			assert.Equal(t, tc.err.Error(), body["error"])
		})
	}
}

func TestStatus(t *testing.T) {
	svc := &stubService{status: domain.RunStatus{
		State:         domain.RunActive,
		ContainerName: "lighthouse-workload",
		Logs:          "[2026-05-01 12:00:01] Loop 1: hi\n",
	}}
	app := newTestApp(svc)

	code, body := do(t, app, "GET", "/api/v1/run", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "active", body["state"])
	assert.Equal(t, "[2026-05-01 12:00:01] Loop 1: hi\n", body["logs"])
}

func TestStop(t *testing.T) {
	code, _ := do(t, newTestApp(&stubService{}), "DELETE", "/api/v1/run", "")
	assert.Equal(t, fiber.StatusOK, code)

	code, body := do(t, newTestApp(&stubService{stopErr: domain.ErrNoActiveRun}), "DELETE", "/api/v1/run", "")
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "no_active_run", body["kind"])
}

func TestContainerRoutes(t *testing.T) {
	app := newTestApp(&stubService{container: domain.ContainerStopped})

	code, body := do(t, app, "GET", "/api/v1/container", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "stopped", body["status"])

	code, _ = do(t, app, "DELETE", "/api/v1/container", "")
	assert.Equal(t, fiber.StatusOK, code)

	app = newTestApp(&stubService{removeErr: fmt.Errorf("cannot remove x: %w", domain.ErrRunActive)})
	code, body = do(t, app, "DELETE", "/api/v1/container", "")
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "run_active", body["kind"])
}
