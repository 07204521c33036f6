package handler

import (
	"errors"
	"net/http"

	"github.com/alexclassroom/woocommerce/internal/domain/shared"
	"github.com/alexclassroom/woocommerce/internal/domain/templating"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/logger"
	"github.com/alexclassroom/woocommerce/internal/interfaces/http/dto"
	"github.com/alexclassroom/woocommerce/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts templating and domain errors to HTTP responses.
// Server side failures are logged with the request logger.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var code, message string

	var templatingErr *templating.Error
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &templatingErr):
		code = dto.NormalizeErrorCode(templatingErr.Code)
		message = templatingErr.Error()
	case errors.As(err, &domainErr):
		code = dto.NormalizeErrorCode(domainErr.Code)
		message = domainErr.Message
	default:
		code = dto.ErrCodeInternal
		message = "An unexpected error occurred"
	}

	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("Request failed",
			zap.String("code", code),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	h.Error(c, status, code, message)
}
