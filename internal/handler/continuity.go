package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/service"
	"github.com/shotflow/api/pkg/response"
)

type ContinuityHandler struct {
	service   *service.ContinuityService
	validator *validator.Validate
}

func NewContinuityHandler(svc *service.ContinuityService, v *validator.Validate) *ContinuityHandler {
	return &ContinuityHandler{
		service:   svc,
		validator: v,
	}
}

// GetState handles GET /api/projects/:projectId/continuity
func (h *ContinuityHandler) GetState(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	state, err := h.service.GetState(c.Context(), projectID, c.Query("sessionId"))
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, state)
}

// SetFact handles PUT /api/projects/:projectId/continuity/facts
func (h *ContinuityHandler) SetFact(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	var req model.NarrativeFactRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	state, err := h.service.SetNarrativeFact(c.Context(), projectID, c.Query("sessionId"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, state)
}

// SetActiveCharacters handles PUT /api/projects/:projectId/continuity/characters
func (h *ContinuityHandler) SetActiveCharacters(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	var req model.ActiveCharactersRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	state, resolved, err := h.service.SetActiveCharacters(c.Context(), projectID, c.Query("sessionId"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{
		"state":    state,
		"resolved": resolved,
	})
}
