package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/shotflow/api/internal/model"
	"github.com/shotflow/api/internal/service"
	"github.com/shotflow/api/pkg/response"
)

type ScriptHandler struct {
	service   *service.ScriptService
	validator *validator.Validate
}

func NewScriptHandler(svc *service.ScriptService, v *validator.Validate) *ScriptHandler {
	return &ScriptHandler{
		service:   svc,
		validator: v,
	}
}

// Analyze handles POST /api/scripts/analyze
func (h *ScriptHandler) Analyze(c *fiber.Ctx) error {
	var req model.ScriptAnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Analyze(c.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "already has a breakdown") {
			return response.Conflict(c, err.Error())
		}
		if strings.Contains(err.Error(), "script analysis failed") || strings.Contains(err.Error(), "breakdown produced") {
			return response.BreakdownError(c, err.Error())
		}
		return serviceError(c, err)
	}
	return response.Created(c, result)
}
