package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/service"
	"github.com/shotflow/api/pkg/response"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
	}
}

// StartShot handles POST /api/render/shot
func (h *RenderHandler) StartShot(c *fiber.Ctx) error {
	var req model.RenderShotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.EnqueueShot(c.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "already has a render job in flight") {
			return response.Conflict(c, err.Error())
		}
		return serviceError(c, err)
	}
	return response.Accepted(c, result)
}

// StartProject handles POST /api/render/project
func (h *RenderHandler) StartProject(c *fiber.Ctx) error {
	var req model.RenderProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.EnqueueProject(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Accepted(c, result)
}

// Status handles GET /api/render/jobs/:jobId
func (h *RenderHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetJob(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, result)
}

// ListByProject handles GET /api/projects/:projectId/jobs
func (h *RenderHandler) ListByProject(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	jobs, err := h.service.ListProjectJobs(c.Context(), projectID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"jobs": jobs})
}

// ListByShot handles GET /api/shots/:shotId/jobs
func (h *RenderHandler) ListByShot(c *fiber.Ctx) error {
	shotID := c.Params("shotId")
	if shotID == "" {
		return response.ValidationError(c, "Shot ID is required", nil)
	}

	jobs, err := h.service.ListShotJobs(c.Context(), shotID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"jobs": jobs})
}
