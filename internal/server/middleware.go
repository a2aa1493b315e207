package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"auction-platform/utils"

	"github.com/gin-gonic/gin"
)

var errMissingIdentity = errors.New("missing " + utils.UserHeader + " header")

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
		"user":    utils.CurrentUser(c),
	})
}

// RequireIdentity rejects requests without a caller name and stores it for handlers
func RequireIdentity(c *gin.Context) {
	name := strings.TrimSpace(c.GetHeader(utils.UserHeader))
	if name == "" {
		utils.AbortJSONError(c, http.StatusUnauthorized, errMissingIdentity, "authentication required")
		return
	}
	utils.SetCurrentUser(c, name)
	c.Next()
}
