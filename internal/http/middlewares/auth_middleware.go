package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/taskhub/internal/actorctx"
	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

// Keep this small interface so tests can fake it easily.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.User, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(a Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: a}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		u, err := m.auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				abort(c, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrTokenInvalid):
				abort(c, http.StatusUnauthorized, "Invalid token")
			default:
				abort(c, http.StatusInternalServerError, "Authentication failed")
			}
			return
		}

		actor := actorctx.FromUser(u)
		c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), actor))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Readers for the actor RequireAuth put on the request context.

func ActorFrom(c *gin.Context) (actorctx.Actor, bool) {
	return actorctx.From(c.Request.Context())
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	a, ok := ActorFrom(c)
	return a.ID, ok
}
