package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	domainerrors "github.com/settlepay/settlement_service/internal/domain/errors"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// Error codes used by the handlers themselves; service errors carry their own codes
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidationError    = "VALIDATION_ERROR"
	ErrCodeInvalidID          = "INVALID_ID"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

const (
	MsgInvalidRequest     = "Invalid request payload"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
)

// SendBadRequest sends a 400 Bad Request error
func SendBadRequest(c *gin.Context, code, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: det,
	})
}

// SendInternalError sends a 500 Internal Server Error
func SendInternalError(c *gin.Context, code, message string) {
	c.JSON(http.StatusInternalServerError, entities.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// SendServiceUnavailable sends a 503 Service Unavailable error
func SendServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, entities.ErrorResponse{
		Code:    ErrCodeServiceUnavailable,
		Message: message,
	})
}

// SendSuccess sends a 200 OK response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a 201 Created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendNoContent sends a 204 No Content response
func SendNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// SendValidationError sends a validation error with field details
func SendValidationError(c *gin.Context, message string, fieldErrors map[string]string) {
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    ErrCodeValidationError,
		Message: message,
		Details: map[string]interface{}{
			"validation_errors": fieldErrors,
		},
	})
}

// SendDomainError maps a service error to its HTTP status. Errors without a
// category are logged and hidden behind a generic 500.
func SendDomainError(c *gin.Context, log *logger.Logger, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err, "request_id", getRequestID(c))
		SendInternalError(c, ErrCodeInternalError, MsgInternalError)
		return
	}

	if status >= http.StatusInternalServerError {
		log.Warn("Upstream dependency failed", "error", err, "request_id", getRequestID(c))
	}

	c.JSON(status, entities.ErrorResponse{
		Code:    domainerrors.GetErrorCode(err),
		Message: err.Error(),
		Details: domainerrors.GetErrorDetails(err),
	})
}

func statusForError(err error) int {
	switch {
	case domainerrors.IsNotFound(err):
		return http.StatusNotFound
	case domainerrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case domainerrors.IsAlreadyExists(err), domainerrors.IsConflict(err):
		return http.StatusConflict
	case domainerrors.IsServiceUnavailable(err):
		return http.StatusBadGateway
	case domainerrors.IsInvariant(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
