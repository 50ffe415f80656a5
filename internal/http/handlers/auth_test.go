package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/service"
)

type fakeAuthService struct {
	registerFn       func(ctx context.Context, in service.RegisterInput) (service.Session, error)
	loginFn          func(ctx context.Context, email, password string) (service.Session, error)
	profileFn        func(ctx context.Context, userID string) (user.User, error)
	updateProfileFn  func(ctx context.Context, userID string, p service.ProfilePatch) (user.User, error)
	changePasswordFn func(ctx context.Context, userID, current, next string) error
	listUsersFn      func(ctx context.Context) (service.UserList, error)
	deleteUserFn     func(ctx context.Context, actorID, targetID string) error
}

func (f *fakeAuthService) Register(ctx context.Context, in service.RegisterInput) (service.Session, error) {
	if f.registerFn != nil {
		return f.registerFn(ctx, in)
	}
	return service.Session{}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (service.Session, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password)
	}
	return service.Session{}, nil
}

func (f *fakeAuthService) Profile(ctx context.Context, userID string) (user.User, error) {
	if f.profileFn != nil {
		return f.profileFn(ctx, userID)
	}
	return user.User{}, nil
}

func (f *fakeAuthService) UpdateProfile(ctx context.Context, userID string, p service.ProfilePatch) (user.User, error) {
	if f.updateProfileFn != nil {
		return f.updateProfileFn(ctx, userID, p)
	}
	return user.User{}, nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if f.changePasswordFn != nil {
		return f.changePasswordFn(ctx, userID, current, next)
	}
	return nil
}

func (f *fakeAuthService) ListUsers(ctx context.Context) (service.UserList, error) {
	if f.listUsersFn != nil {
		return f.listUsersFn(ctx)
	}
	return service.UserList{}, nil
}

func (f *fakeAuthService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	if f.deleteUserFn != nil {
		return f.deleteUserFn(ctx, actorID, targetID)
	}
	return nil
}

type recordedEvents map[string][]bool

func (r recordedEvents) AuthEvent(event string, ok bool) {
	r[event] = append(r[event], ok)
}

func authRouter(svc handlers.AuthService, events handlers.AuthEvents) *gin.Engine {
	h := handlers.NewAuthHandler(svc, time.Second)
	if events != nil {
		h.WithEvents(events)
	}

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	authed := r.Group("", as(alice))
	authed.GET("/auth/profile", h.Profile)
	authed.PUT("/auth/profile", h.UpdateProfile)
	authed.PUT("/auth/change-password", h.ChangePassword)
	authed.GET("/auth/users", h.ListUsers)
	authed.DELETE("/auth/users/:id", h.DeleteUser)
	return r
}

func TestRegister_ReturnsSession(t *testing.T) {
	var got service.RegisterInput
	svc := &fakeAuthService{
		registerFn: func(ctx context.Context, in service.RegisterInput) (service.Session, error) {
			got = in
			u := user.User{ID: "u1", Username: in.Username, Email: in.Email, PasswordHash: "secret-hash", Role: user.RoleUser}
			return service.Session{User: u, Token: "tok"}, nil
		},
	}
	events := recordedEvents{}

	body := `{"username":"alice","email":"alice@example.com","password":"Passw0rd"}`
	w, env := do(t, authRouter(svc, events), http.MethodPost, "/auth/register", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if env.Message != "User registered successfully" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if got.Username != "alice" || got.Password != "Passw0rd" || got.Role != "" {
		t.Fatalf("unexpected input: %+v", got)
	}

	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["token"] != "tok" {
		t.Fatalf("expected token in data, got %v", data)
	}
	u, _ := data["user"].(map[string]any)
	if _, leaked := u["password_hash"]; leaked || u["username"] != "alice" {
		t.Fatalf("unexpected user payload: %v", u)
	}
	if len(events["register"]) != 1 || !events["register"][0] {
		t.Fatalf("expected one successful register event, got %v", events)
	}
}

func TestRegister_MapsConflictsAndAdminCode(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"email", fmt.Errorf("register: %w", user.ErrEmailTaken), http.StatusBadRequest, "User with this email already exists"},
		{"username", fmt.Errorf("register: %w", user.ErrUsernameTaken), http.StatusBadRequest, "Username already taken"},
		{"admin code", service.ErrInvalidAdminCode, http.StatusForbidden, "Invalid admin code. Please contact administrator for the correct code."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeAuthService{
				registerFn: func(ctx context.Context, in service.RegisterInput) (service.Session, error) {
					return service.Session{}, tc.err
				},
			}
			events := recordedEvents{}

			body := `{"username":"root","email":"root@example.com","password":"Passw0rd","role":"admin","adminCode":"guess"}`
			w, env := do(t, authRouter(svc, events), http.MethodPost, "/auth/register", body)

			if w.Code != tc.status || env.Message != tc.message {
				t.Fatalf("got %d %q, want %d %q", w.Code, env.Message, tc.status, tc.message)
			}
			if len(events["register"]) != 1 || events["register"][0] {
				t.Fatalf("expected one rejected register event, got %v", events)
			}
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &fakeAuthService{
		loginFn: func(ctx context.Context, email, password string) (service.Session, error) {
			return service.Session{}, service.ErrInvalidCredentials
		},
	}

	w, env := do(t, authRouter(svc, nil), http.MethodPost, "/auth/login", `{"email":"who@example.com","password":"x"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if env.Message != "Invalid email or password" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestUpdateProfile_ForwardsOnlyPresentFields(t *testing.T) {
	var got service.ProfilePatch
	svc := &fakeAuthService{
		updateProfileFn: func(ctx context.Context, userID string, p service.ProfilePatch) (user.User, error) {
			got = p
			if p.Empty() {
				return user.User{}, service.ErrEmptyPatch
			}
			return user.User{ID: userID, Username: *p.Username}, nil
		},
	}
	r := authRouter(svc, nil)

	w, env := do(t, r, http.MethodPut, "/auth/profile", `{"username":"alice2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if got.Username == nil || *got.Username != "alice2" || got.Email != nil {
		t.Fatalf("unexpected patch: %+v", got)
	}
	if env.Message != "Profile updated successfully" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	w, env = do(t, r, http.MethodPut, "/auth/profile", `{}`)
	if w.Code != http.StatusBadRequest || env.Message != "No valid fields provided for update" {
		t.Fatalf("got %d %q", w.Code, env.Message)
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc := &fakeAuthService{
		changePasswordFn: func(ctx context.Context, userID, current, next string) error {
			if userID != alice.ID {
				t.Errorf("unexpected user %q", userID)
			}
			return service.ErrWrongPassword
		},
	}

	body := `{"currentPassword":"nope","newPassword":"Newpass1"}`
	w, env := do(t, authRouter(svc, nil), http.MethodPut, "/auth/change-password", body)

	if w.Code != http.StatusBadRequest || env.Message != "Current password is incorrect" {
		t.Fatalf("got %d %q", w.Code, env.Message)
	}
}

func TestDeleteUser_SelfDeleteRejected(t *testing.T) {
	svc := &fakeAuthService{
		deleteUserFn: func(ctx context.Context, actorID, targetID string) error {
			if actorID == targetID {
				return service.ErrSelfDelete
			}
			return nil
		},
	}
	r := authRouter(svc, nil)

	w, env := do(t, r, http.MethodDelete, "/auth/users/"+alice.ID, "")
	if w.Code != http.StatusBadRequest || env.Message != "Cannot delete your own account" {
		t.Fatalf("got %d %q", w.Code, env.Message)
	}

	w, env = do(t, r, http.MethodDelete, "/auth/users/someone-else", "")
	if w.Code != http.StatusOK || env.Message != "User deleted successfully" {
		t.Fatalf("got %d %q", w.Code, env.Message)
	}
}
