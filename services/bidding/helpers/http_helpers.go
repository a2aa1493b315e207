package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-platform/internal/auctionerrors"
	"auction-platform/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	status := utils.StatusFor(err)
	switch {
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	case status == http.StatusBadRequest:
		return status, "invalid bid details"
	case status == http.StatusForbidden:
		return status, "sellers cannot bid on their own auction"
	case status == http.StatusNotFound:
		return status, "auction not found"
	case status == http.StatusConflict:
		return status, "auction changed concurrently, retry"
	case status == http.StatusServiceUnavailable:
		return status, "bid ledger temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
