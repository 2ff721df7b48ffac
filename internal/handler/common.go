package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/shotflow/api/internal/store"
	"github.com/shotflow/api/pkg/response"
)

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

// serviceError maps store sentinel errors to HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrProjectNotFound):
		return response.NotFound(c, "Project not found")
	case errors.Is(err, store.ErrShotNotFound):
		return response.NotFound(c, "Shot not found")
	case errors.Is(err, store.ErrCharacterNotFound):
		return response.NotFound(c, "Character not found")
	case errors.Is(err, store.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, store.ErrCharacterExists):
		return response.Conflict(c, "Character name already exists in project")
	case errors.Is(err, store.ErrInvalidTransition):
		return response.Conflict(c, "Job is not in a state that allows this operation")
	default:
		return response.ServiceError(c, err.Error())
	}
}
