package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/shotflow/api/internal/service"
	"github.com/shotflow/api/pkg/response"
)

type ProjectHandler struct {
	service   *service.ProjectService
	validator *validator.Validate
}

type createProjectRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

func NewProjectHandler(svc *service.ProjectService, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var req createProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	project, err := h.service.Create(c.Context(), req.Name, req.Description)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Created(c, project)
}

// Get handles GET /api/projects/:projectId
func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	project, err := h.service.Get(c.Context(), projectID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, project)
}

// ListShots handles GET /api/projects/:projectId/shots
func (h *ProjectHandler) ListShots(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	shots, err := h.service.ListShots(c.Context(), projectID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"shots": shots})
}
