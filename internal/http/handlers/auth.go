package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/service"
)

// AuthService is the slice of *service.AuthService the auth routes need.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Profile(ctx context.Context, userID string) (user.User, error)
	UpdateProfile(ctx context.Context, userID string, p service.ProfilePatch) (user.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	ListUsers(ctx context.Context) (service.UserList, error)
	DeleteUser(ctx context.Context, actorID, targetID string) error
}

// AuthEvents receives one call per register or login attempt.
type AuthEvents interface {
	AuthEvent(event string, ok bool)
}

type AuthHandler struct {
	auth    AuthService
	timeout time.Duration
	events  AuthEvents
}

func NewAuthHandler(auth AuthService, timeout time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, timeout: timeout}
}

func (h *AuthHandler) WithEvents(events AuthEvents) *AuthHandler {
	h.events = events
	return h
}

func (h *AuthHandler) record(event string, err error) {
	if h.events != nil {
		h.events.AuthEvent(event, err == nil)
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	sess, err := h.auth.Register(cctx, service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		AdminCode: req.AdminCode,
	})
	h.record("register", err)
	if err != nil {
		RespondServiceError(ctx, err, "Could not register user")
		return
	}

	RespondCreated(ctx, "User registered successfully", sess)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	sess, err := h.auth.Login(cctx, req.Email, req.Password)
	h.record("login", err)
	if err != nil {
		RespondServiceError(ctx, err, "Could not log in")
		return
	}

	RespondOK(ctx, "Login successful", sess)
}

func (h *AuthHandler) Profile(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Access denied. No token provided.")
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	u, err := h.auth.Profile(cctx, actor.ID)
	if err != nil {
		RespondServiceError(ctx, err, "Could not load profile")
		return
	}

	RespondOK(ctx, "Profile retrieved successfully", gin.H{"user": u})
}

func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Access denied. No token provided.")
		return
	}

	var req user.UpdateProfileRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	u, err := h.auth.UpdateProfile(cctx, actor.ID, service.ProfilePatch{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		RespondServiceError(ctx, err, "Could not update profile")
		return
	}

	RespondOK(ctx, "Profile updated successfully", gin.H{"user": u})
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Access denied. No token provided.")
		return
	}

	var req user.ChangePasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	if err := h.auth.ChangePassword(cctx, actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		RespondServiceError(ctx, err, "Could not change password")
		return
	}

	RespondOK(ctx, "Password changed successfully", nil)
}

// ListUsers is the admin overview served under /auth/users.
func (h *AuthHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	list, err := h.auth.ListUsers(cctx)
	if err != nil {
		RespondServiceError(ctx, err, "Could not list users")
		return
	}

	RespondOK(ctx, "Users retrieved successfully", list)
}

func (h *AuthHandler) DeleteUser(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Access denied. No token provided.")
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	if err := h.auth.DeleteUser(cctx, actor.ID, ctx.Param("id")); err != nil {
		RespondServiceError(ctx, err, "Could not delete user")
		return
	}

	RespondOK(ctx, "User deleted successfully", nil)
}

// storeContext bounds store work by the request context and a deadline.
func storeContext(ctx *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(ctx.Request.Context(), timeout)
}

