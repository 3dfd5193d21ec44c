package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stemworks/api/internal/model"
	"github.com/stemworks/api/internal/pipeline"
	"github.com/stemworks/api/pkg/response"
)

type StemsHandler struct {
	pipeline  *pipeline.Pipeline
	validator *validator.Validate
}

func NewStemsHandler(p *pipeline.Pipeline, v *validator.Validate) *StemsHandler {
	return &StemsHandler{
		pipeline:  p,
		validator: v,
	}
}

// Submit handles POST /api/stems/upload
func (h *StemsHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.pipeline.SubmitUpload(c.Context(), &req)
	if err != nil {
		if errors.Is(err, pipeline.ErrValidation) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/stems/status/:uploadId
func (h *StemsHandler) Status(c *fiber.Ctx) error {
	uploadID := c.Params("uploadId")
	if uploadID == "" {
		return response.ValidationError(c, "Upload ID is required", nil)
	}

	result, err := h.pipeline.GetStatus(c.Context(), uploadID)
	if err != nil {
		if pipeline.IsNotFound(err) {
			return response.NotFound(c, "Upload not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Retry handles POST /api/stems/retry/:uploadId
func (h *StemsHandler) Retry(c *fiber.Ctx) error {
	uploadID := c.Params("uploadId")
	if uploadID == "" {
		return response.ValidationError(c, "Upload ID is required", nil)
	}

	result, err := h.pipeline.Retry(c.Context(), uploadID)
	if err != nil {
		return mapPipelineError(c, err)
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/stems/cancel/:uploadId
func (h *StemsHandler) Cancel(c *fiber.Ctx) error {
	uploadID := c.Params("uploadId")
	if uploadID == "" {
		return response.ValidationError(c, "Upload ID is required", nil)
	}

	result, err := h.pipeline.Cancel(c.Context(), uploadID)
	if err != nil {
		return mapPipelineError(c, err)
	}

	return response.OK(c, result)
}

func mapPipelineError(c *fiber.Ctx, err error) error {
	switch {
	case pipeline.IsNotFound(err):
		return response.NotFound(c, "Upload not found")
	case errors.Is(err, pipeline.ErrStateConflict):
		return response.Conflict(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}

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
