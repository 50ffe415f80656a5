package middlewares_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator struct {
	users map[string]user.User
	errs  map[string]error
}

func (f fakeAuthenticator) Authenticate(ctx context.Context, token string) (user.User, error) {
	if err, ok := f.errs[token]; ok {
		return user.User{}, err
	}
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return user.User{}, auth.ErrTokenInvalid
}

type errBody struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
	Stack     string `json:"stack"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) errBody {
	t.Helper()
	var b errBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b), "body=%s", w.Body.String())
	return b
}

func authRouter() *gin.Engine {
	mw := middlewares.NewAuthMiddleware(fakeAuthenticator{
		users: map[string]user.User{
			"alice-token": {ID: "alice-id", Username: "alice", Role: user.RoleUser},
			"admin-token": {ID: "admin-id", Username: "root", Role: user.RoleAdmin},
		},
		errs: map[string]error{"old-token": auth.ErrTokenExpired},
	})

	r := gin.New()
	r.Use(middlewares.RequestID())
	r.GET("/me", mw.RequireAuth(), func(c *gin.Context) {
		a, ok := middlewares.ActorFrom(c)
		id, _ := middlewares.UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "actor": a.ID, "ctx_id": id})
	})
	r.GET("/admin", mw.RequireAuth(), mw.RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := authRouter()

	cases := []struct {
		name    string
		token   string
		status  int
		message string
	}{
		{"missing", "", http.StatusUnauthorized, "Access denied. No token provided."},
		{"expired", "old-token", http.StatusUnauthorized, "Token expired"},
		{"invalid", "forged", http.StatusUnauthorized, "Invalid token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, "/me", tc.token)
			assert.Equal(t, tc.status, w.Code)

			b := decode(t, w)
			assert.Equal(t, "error", b.Status)
			assert.Equal(t, tc.message, b.Message)
			assert.NotEmpty(t, b.RequestID)
		})
	}

	t.Run("valid", func(t *testing.T) {
		w := get(r, "/me", "alice-token")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"ok":true,"actor":"alice-id","ctx_id":"alice-id"}`, w.Body.String())
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Basic alice-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	r := authRouter()

	w := get(r, "/admin", "alice-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, decode(t, w).Message, "admin")

	w = get(r, "/admin", "admin-token")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireRole_WithoutActorIsUnauthorized(t *testing.T) {
	mw := middlewares.NewAuthMiddleware(fakeAuthenticator{})

	r := gin.New()
	r.GET("/admin", mw.RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := get(r, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_AnyOfSeveral(t *testing.T) {
	mw := middlewares.NewAuthMiddleware(fakeAuthenticator{
		users: map[string]user.User{"alice-token": {ID: "alice-id", Role: user.RoleUser}},
	})

	r := gin.New()
	r.GET("/either", mw.RequireAuth(), mw.RequireRole(user.RoleAdmin, user.RoleUser), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := get(r, "/either", "alice-token")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.DELETE("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "Application/Merge-Patch+JSON")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("{}"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code, "a missing content type is rejected")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMaxBodyBytes_RejectsDeclaredOversize(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.MaxBodyBytes(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"title":"too long"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequestID())
	r.Use(middlewares.Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	b := decode(t, w)
	assert.Equal(t, "error", b.Status)
	assert.Equal(t, "Internal server error", b.Message)
	assert.Equal(t, "req-123", b.RequestID)
	assert.NotEmpty(t, b.Stack, "stack is echoed outside release mode")
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.CORSMiddleware([]string{"http://app.local"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://app.local")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://app.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.SecurityHeaders())
	r.GET("/api/v1/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/api/v1/x", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")

	w = get(r, "/", "")
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
}
