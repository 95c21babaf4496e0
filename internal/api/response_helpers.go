// internal/api/response_helpers.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/EbookGen/internal/errors"
	"github.com/Corphon/EbookGen/internal/utils"
)

// APIResponse is the envelope of every JSON response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError carries a stable code and a user-facing message
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper writes envelopes
type ResponseHelper struct {
	logger *utils.Logger
}

func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{logger: utils.GetLogger()}
}

// Success 200
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusOK, data, message...)
}

// Created 201
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusCreated, data, message...)
}

func (rh *ResponseHelper) write(c *gin.Context, status int, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// Error writes an error envelope
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}
	if len(details) > 0 {
		apiError.Details = details[0]
	}
	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

func (rh *ResponseHelper) NotFound(c *gin.Context, code, message string) {
	rh.Error(c, http.StatusNotFound, code, message)
}

func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// AppError maps an application error to its status and code. The message is
// the already localized AppError message.
func (rh *ResponseHelper) AppError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		rh.Error(c, http.StatusServiceUnavailable, ErrorCancelled, "request ended before the generation finished")
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		rh.logger.Error("unclassified error", map[string]interface{}{
			"path":  c.FullPath(),
			"error": err,
		})
		rh.InternalError(c, "internal error")
		return
	}

	status, code := statusFor(appErr.Type)
	if status >= http.StatusInternalServerError {
		rh.logger.Warn("request failed", map[string]interface{}{
			"path":   c.FullPath(),
			"code":   code,
			"status": status,
			"error":  err,
		})
	}
	rh.Error(c, status, code, appErr.Message)
}

func statusFor(t apperrors.ErrorType) (int, string) {
	switch t {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest, ErrorBadRequest
	case apperrors.ErrorTypeMissingCredential:
		return http.StatusBadRequest, ErrorAPIKeyMissing
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound, ErrorNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict, ErrorConflict
	case apperrors.ErrorTypeInvalidTransition:
		return http.StatusConflict, ErrorInvalidTransition
	case apperrors.ErrorTypeMalformedResponse:
		return http.StatusBadGateway, ErrorMalformedResponse
	case apperrors.ErrorTypeProvider:
		return http.StatusBadGateway, ErrorProviderError
	default:
		return http.StatusInternalServerError, ErrorInternalError
	}
}

// DownloadResponse forces a download of content
func (rh *ResponseHelper) DownloadResponse(c *gin.Context, content []byte, filename, contentType string) {
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, contentType, content)
}

func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
