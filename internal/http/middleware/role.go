package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kural1554/Finance/internal/domain/staff"
)

// RequireRole lets through actors whose role is at least min.
func RequireRole(min staff.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !actor.Role.Satisfies(min) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
