package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/melih/lighthouse-runner/internal/core/domain"
	"github.com/melih/lighthouse-runner/internal/core/ports"
)

// RunHandler exposes the lifecycle controller over HTTP.
type RunHandler struct {
	service ports.LifecycleService
}

func NewRunHandler(service ports.LifecycleService) *RunHandler {
	return &RunHandler{service: service}
}

// Register mounts the routes under router.
func (h *RunHandler) Register(router fiber.Router) {
	run := router.Group("/run")
	run.Post("/", h.Launch)
	run.Get("/", h.Status)
	run.Delete("/", h.Stop)

	c := router.Group("/container")
	c.Get("/", h.ContainerStatus)
	c.Delete("/", h.RemoveContainer)
}

func (h *RunHandler) Launch(c *fiber.Ctx) error {
	var req domain.LaunchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"kind":  domain.ErrorKind(domain.ErrInvalidRequest),
		})
	}

	res, err := h.service.Launch(c.UserContext(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *RunHandler) Status(c *fiber.Ctx) error {
	status, err := h.service.ReadStatus(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(status)
}

func (h *RunHandler) Stop(c *fiber.Ctx) error {
	if err := h.service.Stop(c.UserContext()); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *RunHandler) ContainerStatus(c *fiber.Ctx) error {
	status, err := h.service.ContainerStatus(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

func (h *RunHandler) RemoveContainer(c *fiber.Ctx) error {
	if err := h.service.Remove(c.UserContext()); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  domain.ErrorKind(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrRunActive), errors.Is(err, domain.ErrNoActiveRun):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrRuntimeUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrBuildFailed),
		errors.Is(err, domain.ErrCreateFailed),
		errors.Is(err, domain.ErrStartFailed),
		errors.Is(err, domain.ErrExecFailed),
		errors.Is(err, domain.ErrRemoveFailed),
		errors.Is(err, domain.ErrContainerNotFound):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
