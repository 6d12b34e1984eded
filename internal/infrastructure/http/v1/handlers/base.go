// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/infrastructure/http/v1/dto"
	"lotkeeper/internal/infrastructure/http/v1/middleware"
	"lotkeeper/pkg/logger"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindOptionalJSON binds a body that may be empty.
func (h *BaseHandler) BindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.BindJSON(c, obj)
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// ParamID parses the :id path parameter.
func (h *BaseHandler) ParamID(c *gin.Context) (id.ID, bool) {
	v, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("value", c.Param("id")))
		return id.Nil(), false
	}
	return v, true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Respond sends data with status and stores it for idempotent replay.
func (h *BaseHandler) Respond(c *gin.Context, status int, data any) {
	middleware.CompleteIdempotency(c, status, "application/json", data)
	c.JSON(status, data)
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.Respond(c, http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.Respond(c, http.StatusOK, data)
}

// Result answers a reconciler call. A partial success still carries the
// committed result and answers 207 with the failure listed as a warning.
func (h *BaseHandler) Result(c *gin.Context, status int, result any, err error) {
	if err == nil {
		h.Respond(c, status, result)
		return
	}

	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodePartialSuccess || result == nil {
		h.Error(c, err)
		return
	}

	logger.Warn(c.Request.Context(), "partial success", "message", appErr.Message, "cause", appErr.Err)
	h.Respond(c, http.StatusMultiStatus, dto.PartialResponse{
		Result:   result,
		Warnings: []dto.ErrorResponse{dto.FromAppError(appErr)},
	})
}
