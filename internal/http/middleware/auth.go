package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kural1554/Finance/internal/auth"
	"github.com/kural1554/Finance/internal/domain/staff"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "user_role"
)

// RequireAuth accepts the access cookie, and an Authorization Bearer header
// when allowBearer is set.
func RequireAuth(jwt *auth.JWTManager, allowBearer bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if cookie, err := c.Request.Cookie(auth.AccessCookieName); err == nil {
			token = cookie.Value
		}
		if token == "" && allowBearer {
			if h := c.GetHeader("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
				token = strings.TrimSpace(h[7:])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := jwt.Parse(token)
		if err != nil || claims.Type != auth.TokenTypeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		role, err := staff.ParseRole(claims.Role)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// ActorFrom returns the staff member RequireAuth authenticated.
func ActorFrom(c *gin.Context) (staff.Actor, bool) {
	role, ok := c.Get(ctxRole)
	if !ok {
		return staff.Actor{}, false
	}
	r, ok := role.(staff.Role)
	if !ok || !r.Valid() {
		return staff.Actor{}, false
	}
	return staff.Actor{UserID: c.GetString(ctxUserID), Username: c.GetString(ctxUsername), Role: r}, true
}
