package handlers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/settlepay/settlement_service/pkg/logger"
)

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// requestLogger returns the per request logger set by the logging middleware
func requestLogger(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := c.Get("logger"); ok {
		if reqLogger, ok := l.(*logger.Logger); ok {
			return reqLogger
		}
	}
	return fallback
}

// parseUUIDParam parses a path parameter as a UUID
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

// parseBoolParam parses a query parameter to bool with default value
func parseBoolParam(c *gin.Context, param string, defaultVal bool) bool {
	if val := c.Query(param); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

// bindJSON decodes the request body, writing a 400 on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		SendBadRequest(c, ErrCodeInvalidRequest, MsgInvalidRequest, map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

// validateRequest runs struct validation, writing a 400 with field details on failure
func validateRequest(c *gin.Context, v *validator.Validate, req interface{}) bool {
	err := v.Struct(req)
	if err == nil {
		return true
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			fields[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
		}
		SendValidationError(c, "Request validation failed", fields)
		return false
	}
	SendBadRequest(c, ErrCodeValidationError, err.Error())
	return false
}
