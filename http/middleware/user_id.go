package middlewares

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-file-hub/utils"
)

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// UserIDMiddleware resolves the caller identity from the X-User-ID header.
// Authentication itself happens upstream at the gateway; this service only
// trusts and validates the forwarded identity.
func UserIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			utils.JSON401(c, "Unauthorized: X-User-ID header is required")
			c.Abort()
			return
		}
		if !userIDPattern.MatchString(userID) {
			utils.JSON400(c, "Invalid user id format")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
