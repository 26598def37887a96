package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/auth"
	"github.com/runwhen-contrib/codecollection-registry-sub002/utils"
)

// AdminAuth guards the admin endpoints with a bearer token issued by the
// auth service.
func AdminAuth(tokens *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			utils.RespondWithUnauthorized(c, "Missing bearer token")
			c.Abort()
			return
		}

		claims, err := tokens.Validate(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("token_id", claims.ID)
		c.Next()
	}
}
