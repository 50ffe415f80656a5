package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/taskhub/internal/config"
	apphttp "github.com/geocoder89/taskhub/internal/http"
	"github.com/geocoder89/taskhub/internal/repo/memory"
	"github.com/geocoder89/taskhub/pkg/client"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		Env:              "test",
		StoreTimeout:     2 * time.Second,
		JWTSecret:        "client-test-secret",
		JWTTTL:           time.Hour,
		AdminCode:        "letmein",
		BcryptCost:       4,
		IdentityCacheTTL: time.Minute,
		RateLimitMax:     1000,
		RateLimitWindow:  time.Minute,
		MaxBodyBytes:     1 << 20,
		ServiceName:      "taskhub-client-test",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(apphttp.NewRouter(logger, cfg, memory.NewStore(), nil))
	t.Cleanup(srv.Close)
	return srv
}

func register(t *testing.T, base, username, role string) *client.Client {
	t.Helper()

	c := client.New(base)
	reg := client.Registration{
		Username: username,
		Email:    username + "@example.com",
		Password: "Passw0rd",
	}
	if role == "admin" {
		reg.Role = "admin"
		reg.AdminCode = "letmein"
	}

	s, err := c.Register(context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, username, s.User.Username)
	return c
}

func TestClient_AliceAndBobScenario(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	alice := register(t, srv.URL, "alice", "user")
	bob := register(t, srv.URL, "bob", "user")
	root := register(t, srv.URL, "root", "admin")

	require.NoError(t, alice.Health(ctx))

	tk, err := alice.CreateTask(ctx, client.NewTask{Title: "T1"})
	require.NoError(t, err)
	assert.Equal(t, "pending", tk.Status)
	assert.Equal(t, "medium", tk.Priority)

	st, err := alice.TaskStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.ByStatus.Pending)
	assert.Equal(t, 1, st.ByPriority.Medium)

	done := "completed"
	_, err = bob.UpdateTask(ctx, tk.ID, client.TaskUpdate{Status: &done})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, client.StatusCode(err))

	updated, err := root.UpdateTask(ctx, tk.ID, client.TaskUpdate{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, "completed", updated.Status)

	page, err := root.ListTasks(ctx, client.TaskQuery{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "alice", page.Tasks[0].Username)

	mine, err := bob.MyTasks(ctx, client.TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, mine.Tasks)
}

func TestClient_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	register(t, srv.URL, "alice", "user")

	c := client.New(srv.URL)
	_, ok := c.Session()
	assert.False(t, ok)

	_, err := c.Profile(ctx)
	assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))

	_, err = c.Login(ctx, "alice@example.com", "wrong")
	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid email or password", apiErr.Message)

	s, err := c.Login(ctx, "alice@example.com", "Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, s.Token, c.Token())

	name := "alice2"
	u, err := c.UpdateProfile(ctx, client.ProfileUpdate{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)

	cur, _ := c.Session()
	assert.Equal(t, "alice2", cur.User.Username)

	require.NoError(t, c.ChangePassword(ctx, "Passw0rd", "Newpass1"))

	c.Logout()
	assert.Empty(t, c.Token())

	_, err = c.Login(ctx, "alice@example.com", "Newpass1")
	require.NoError(t, err)
}

func TestClient_ValidationErrorsCarryFields(t *testing.T) {
	c := client.New(newServer(t).URL)

	_, err := c.Register(context.Background(), client.Registration{
		Username: "a", Email: "bad", Password: "weak",
	})

	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Validation failed", apiErr.Message)

	fields := map[string]bool{}
	for _, f := range apiErr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["username"] && fields["email"] && fields["password"], "fields: %+v", apiErr.Fields)
}

func TestClient_AdminUserManagement(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	alice := register(t, srv.URL, "alice", "user")
	root := register(t, srv.URL, "root", "admin")

	_, err := alice.ListUsers(ctx)
	assert.Equal(t, http.StatusForbidden, client.StatusCode(err))

	list, err := root.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Stats.Total)

	aliceSession, _ := alice.Session()

	got, err := root.GetUser(ctx, aliceSession.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	email := "alice@corp.example.com"
	got, err = root.UpdateUser(ctx, got.ID, client.ProfileUpdate{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, got.Email)

	stats, err := root.UserStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Admins)

	require.NoError(t, root.DeleteUser(ctx, got.ID))

	_, err = root.GetUser(ctx, got.ID)
	assert.Equal(t, http.StatusNotFound, client.StatusCode(err))
}
