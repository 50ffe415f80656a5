package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/config"
	apphttp "github.com/geocoder89/taskhub/internal/http"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/repo/memory"
)

const testSecret = "test-secret-key"

func testConfig() config.Config {
	return config.Config{
		Env:              "test",
		StoreMode:        "memory",
		StoreTimeout:     2 * time.Second,
		JWTSecret:        testSecret,
		JWTTTL:           time.Hour,
		AdminCode:        "letmein",
		BcryptCost:       4,
		IdentityCacheTTL: time.Minute,
		RateLimitMax:     1000,
		RateLimitWindow:  time.Minute,
		MaxBodyBytes:     1 << 20,
		ServiceName:      "taskhub-test",
	}
}

type api struct {
	t      *testing.T
	router *gin.Engine
	prom   *observability.Prom
}

func setup(t *testing.T, cfg config.Config) *api {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prom := observability.NewProm(prometheus.NewRegistry())
	store := repo.Instrument(memory.NewStore(), "memory", prom)

	return &api{t: t, router: apphttp.NewRouter(logger, cfg, store, prom), prom: prom}
}

type response struct {
	Code int
	Body struct {
		Status     string          `json:"status"`
		Message    string          `json:"message"`
		Data       json.RawMessage `json:"data"`
		Errors     json.RawMessage `json:"errors"`
		Pagination struct {
			Page    int  `json:"page"`
			Limit   int  `json:"limit"`
			Total   int  `json:"total"`
			HasNext bool `json:"hasNext"`
			HasPrev bool `json:"hasPrev"`
		} `json:"pagination"`
	}
	Raw string
}

func (a *api) call(method, path, token string, body any) response {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := response{Code: w.Code, Raw: w.Body.String()}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &out.Body)
	}
	return out
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

func (a *api) register(username, role string) session {
	a.t.Helper()

	body := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "Passw0rd",
	}
	if role == "admin" {
		body["role"] = "admin"
		body["adminCode"] = "letmein"
	}

	res := a.call(http.MethodPost, "/api/v1/auth/register", "", body)
	require.Equal(a.t, http.StatusCreated, res.Code, res.Raw)

	var s session
	require.NoError(a.t, json.Unmarshal(res.Body.Data, &s))
	require.NotEmpty(a.t, s.Token)
	return s
}

type taskBody struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (a *api) createTask(token, title string) taskBody {
	a.t.Helper()

	res := a.call(http.MethodPost, "/api/v1/tasks", token, map[string]string{"title": title})
	require.Equal(a.t, http.StatusCreated, res.Code, res.Raw)

	var data struct {
		Task taskBody `json:"task"`
	}
	require.NoError(a.t, json.Unmarshal(res.Body.Data, &data))
	return data.Task
}

func TestStatsForSingleDefaultTask(t *testing.T) {
	a := setup(t, testConfig())
	alice := a.register("alice", "user")

	tk := a.createTask(alice.Token, "T1")
	assert.Equal(t, "pending", tk.Status)
	assert.Equal(t, "medium", tk.Priority)
	assert.Equal(t, "alice", tk.Username)

	res := a.call(http.MethodGet, "/api/v1/tasks/stats", alice.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	assert.JSONEq(t, `{"stats":{
		"total":1,
		"byStatus":{"pending":1,"in_progress":0,"completed":0},
		"byPriority":{"low":0,"medium":1,"high":0}
	}}`, string(res.Body.Data))
}

func TestForeignUpdateIsHiddenButAdminMayEdit(t *testing.T) {
	a := setup(t, testConfig())
	alice := a.register("alice", "user")
	bob := a.register("bob", "user")
	root := a.register("root", "admin")
	require.Equal(t, "admin", root.User.Role)

	tk := a.createTask(alice.Token, "T1")
	patch := map[string]string{"status": "completed"}

	res := a.call(http.MethodPut, "/api/v1/tasks/"+tk.ID, bob.Token, patch)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Task not found or access denied", res.Body.Message)

	res = a.call(http.MethodGet, "/api/v1/tasks/"+tk.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Access denied", res.Body.Message)

	res = a.call(http.MethodPut, "/api/v1/tasks/"+tk.ID, root.Token, patch)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	var data struct {
		Task taskBody `json:"task"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Data, &data))
	assert.Equal(t, "completed", data.Task.Status)
	assert.Equal(t, alice.User.ID, data.Task.UserID)
}

func TestListingScopesAndPagination(t *testing.T) {
	a := setup(t, testConfig())
	alice := a.register("alice", "user")
	bob := a.register("bob", "user")
	root := a.register("root", "admin")

	for i := 0; i < 3; i++ {
		a.createTask(alice.Token, "alice task")
	}
	a.createTask(bob.Token, "bob task")

	res := a.call(http.MethodGet, "/api/v1/tasks?limit=2", alice.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, 3, res.Body.Pagination.Total)
	assert.True(t, res.Body.Pagination.HasNext)
	assert.False(t, res.Body.Pagination.HasPrev)

	res = a.call(http.MethodGet, "/api/v1/tasks?limit=2&page=2", alice.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.False(t, res.Body.Pagination.HasNext)
	assert.True(t, res.Body.Pagination.HasPrev)

	res = a.call(http.MethodGet, "/api/v1/tasks", root.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, 4, res.Body.Pagination.Total)

	res = a.call(http.MethodGet, "/api/v1/tasks/my", root.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, 0, res.Body.Pagination.Total)

	res = a.call(http.MethodGet, "/api/v1/tasks?search=BOB", root.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, 1, res.Body.Pagination.Total)

	res = a.call(http.MethodGet, "/api/v1/tasks?search=bob", alice.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, 0, res.Body.Pagination.Total)
}

func TestAuthFlows(t *testing.T) {
	a := setup(t, testConfig())
	alice := a.register("alice", "user")

	res := a.call(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "Passw0rd",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Username already taken", res.Body.Message)

	res = a.call(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "mallory", "email": "mallory@example.com", "password": "Passw0rd",
		"role": "admin", "adminCode": "nope",
	})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = a.call(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "mallory", "email": "mallory@example.com", "password": "Passw0rd",
		"role": "admin",
	})
	assert.Equal(t, http.StatusForbidden, res.Code, res.Raw)
	assert.Equal(t, "Invalid admin code. Please contact administrator for the correct code.", res.Body.Message)
	assert.Empty(t, res.Body.Errors, "a missing code is not a validation failure")

	res = a.call(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Invalid email or password", res.Body.Message)

	res = a.call(http.MethodPut, "/api/v1/auth/change-password", alice.Token, map[string]string{
		"currentPassword": "Passw0rd", "newPassword": "Newpass1",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	res = a.call(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "Newpass1",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	res = a.call(http.MethodGet, "/api/v1/auth/profile", alice.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Contains(t, string(res.Body.Data), `"username":"alice"`)
	assert.NotContains(t, res.Raw, "password")
}

func TestTokenFailures(t *testing.T) {
	cfg := testConfig()
	a := setup(t, cfg)
	alice := a.register("alice", "user")

	res := a.call(http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Access denied. No token provided.", res.Body.Message)

	res = a.call(http.MethodGet, "/api/v1/tasks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Invalid token", res.Body.Message)

	past := auth.NewManager(cfg.JWTSecret, time.Minute).WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	})
	stale, err := past.Issue(alice.User.ID)
	require.NoError(t, err)

	res = a.call(http.MethodGet, "/api/v1/tasks", stale, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Token expired", res.Body.Message)
}

func TestAdminUserManagement(t *testing.T) {
	a := setup(t, testConfig())
	alice := a.register("alice", "user")
	root := a.register("root", "admin")
	a.createTask(alice.Token, "doomed")

	res := a.call(http.MethodGet, "/api/v1/users", alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = a.call(http.MethodGet, "/api/v1/auth/users", root.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Contains(t, string(res.Body.Data), `"stats":{"total":2,"admins":1,"users":1}`)

	res = a.call(http.MethodDelete, "/api/v1/users/"+root.User.ID, root.Token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Cannot delete your own account", res.Body.Message)

	res = a.call(http.MethodDelete, "/api/v1/auth/users/"+alice.User.ID, root.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)

	res = a.call(http.MethodGet, "/api/v1/tasks", root.Token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, 0, res.Body.Pagination.Total, "tasks go with their owner")

	res = a.call(http.MethodGet, "/api/v1/tasks", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	a := setup(t, testConfig())

	res := a.call(http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "success", res.Body.Status)
	assert.Equal(t, "Server is running", res.Body.Message)

	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/readyz", "", nil).Code)

	res = a.call(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Not Found - /api/v1/nope", res.Body.Message)

	a.register("alice", "user")
	res = a.call(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Raw, `taskhub_auth_events_total{event="register",result="ok"} 1`)
	assert.Contains(t, res.Raw, `taskhub_store_op_duration_seconds`)
}

func TestRateLimitAppliesToAuthRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 2
	a := setup(t, cfg)

	creds := map[string]string{"email": "x@example.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodPost, "/api/v1/auth/login", "", creds).Code)
	}

	res := a.call(http.MethodPost, "/api/v1/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, "error", res.Body.Status)
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	cfg := testConfig()
	cfg.StaticDir = dir
	a := setup(t, cfg)

	res := a.call(http.MethodGet, "/app.js", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "console.log(1)", res.Raw)

	res = a.call(http.MethodGet, "/dashboard/tasks", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Raw, "app")

	res = a.call(http.MethodGet, "/api/v1/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}
