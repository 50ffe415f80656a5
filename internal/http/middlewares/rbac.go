package middlewares

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireRole admits actors holding one of roles. It runs after RequireAuth;
// on its own it treats the request as anonymous.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	needed := strings.Join(roles, " or ")

	return func(c *gin.Context) {
		a, ok := ActorFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		if !slices.Contains(roles, a.Role) {
			abort(c, http.StatusForbidden, "Access denied. "+needed+" role required.")
			return
		}
		c.Next()
	}
}
