package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/service"
	"github.com/shotflow/api/pkg/response"
)

type CharacterHandler struct {
	service   *service.CharacterService
	validator *validator.Validate
}

func NewCharacterHandler(svc *service.CharacterService, v *validator.Validate) *CharacterHandler {
	return &CharacterHandler{
		service:   svc,
		validator: v,
	}
}

// Register handles POST /api/characters
func (h *CharacterHandler) Register(c *fiber.Ctx) error {
	var req model.CharacterRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Register(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Created(c, result)
}

// List handles GET /api/projects/:projectId/characters
func (h *CharacterHandler) List(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	characters, err := h.service.List(c.Context(), projectID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.Map{"characters": characters})
}

// Get handles GET /api/characters/:characterId
func (h *CharacterHandler) Get(c *fiber.Ctx) error {
	characterID := c.Params("characterId")
	if characterID == "" {
		return response.ValidationError(c, "Character ID is required", nil)
	}

	char, err := h.service.Get(c.Context(), characterID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, char)
}
