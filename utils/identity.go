package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UserHeader carries the authenticated user name set by the gateway
const UserHeader = "X-User-Name"

const userKey = "user"

// SetCurrentUser stores the caller's name on the request context
func SetCurrentUser(c *gin.Context, name string) {
	c.Set(userKey, name)
}

// CurrentUser returns the caller stored by SetCurrentUser, falling back to
// the raw header.
func CurrentUser(c *gin.Context) string {
	if v, ok := c.Get(userKey); ok {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return strings.TrimSpace(c.GetHeader(UserHeader))
}
