package helpers

import (
	"fmt"
	"net/http"
	"time"

	"auction-platform/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("invalid request payload: %w", err), "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps registry errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch status := utils.StatusFor(err); status {
	case http.StatusBadRequest:
		return status, "invalid auction details"
	case http.StatusForbidden:
		return status, "only the seller can change this auction"
	case http.StatusNotFound:
		return status, "auction not found"
	case http.StatusConflict:
		return status, "auction cannot be changed in its current state"
	case http.StatusServiceUnavailable:
		return status, "registry temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// ParseSince reads the optional ?date= filter; empty means everything.
func ParseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	since, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be RFC3339: %w", err)
	}
	return since.UTC(), nil
}
