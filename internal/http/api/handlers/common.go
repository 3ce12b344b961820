// Package handlers implements the HTTP endpoint handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
)

// getUserID extracts the user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	switch v := val.(type) {
	case uint64:
		return v
	case int64:
		return uint64(v)
	case uint:
		return uint64(v)
	case int:
		return uint64(v)
	default:
		return 0
	}
}

// errorBody shapes an application error into the response envelope.
func errorBody(appErr *apperrors.Error) gin.H {
	return gin.H{"error": gin.H{"code": appErr.Code, "message": appErr.Message}}
}

// RenderError writes an application error with its mapped HTTP status.
func RenderError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.JSON(appErr.Status, errorBody(appErr))
}

// AbortError writes an application error and aborts the handler chain.
func AbortError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.AbortWithStatusJSON(appErr.Status, errorBody(appErr))
}

// AbortUnauthorized aborts with a 401 envelope.
func AbortUnauthorized(c *gin.Context, message string) {
	AbortError(c, apperrors.Unauthenticated(message))
}

// Health reports service liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
