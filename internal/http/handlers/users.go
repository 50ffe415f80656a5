package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/service"
)

// UserAdmin covers the admin-only user management routes.
type UserAdmin interface {
	ListUsers(ctx context.Context) (service.UserList, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	AdminUpdateUser(ctx context.Context, id string, p service.ProfilePatch) (user.User, error)
	DeleteUser(ctx context.Context, actorID, targetID string) error
	UserStats(ctx context.Context) (user.Stats, error)
}

type UsersHandler struct {
	users   UserAdmin
	timeout time.Duration
}

func NewUsersHandler(users UserAdmin, timeout time.Duration) *UsersHandler {
	return &UsersHandler{users: users, timeout: timeout}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	list, err := h.users.ListUsers(cctx)
	if err != nil {
		RespondServiceError(ctx, err, "Could not list users")
		return
	}

	RespondOK(ctx, "Users retrieved successfully", list)
}

func (h *UsersHandler) Stats(ctx *gin.Context) {
	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	st, err := h.users.UserStats(cctx)
	if err != nil {
		RespondServiceError(ctx, err, "Could not load user statistics")
		return
	}

	RespondOK(ctx, "User statistics retrieved successfully", gin.H{"stats": st})
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	u, err := h.users.GetUser(cctx, ctx.Param("id"))
	if err != nil {
		RespondServiceError(ctx, err, "Could not load user")
		return
	}

	RespondOK(ctx, "User retrieved successfully", gin.H{"user": u})
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	var req user.UpdateProfileRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	u, err := h.users.AdminUpdateUser(cctx, ctx.Param("id"), service.ProfilePatch{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		RespondServiceError(ctx, err, "Could not update user")
		return
	}

	RespondOK(ctx, "User updated successfully", gin.H{"user": u})
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Access denied. No token provided.")
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	if err := h.users.DeleteUser(cctx, actor.ID, ctx.Param("id")); err != nil {
		RespondServiceError(ctx, err, "Could not delete user")
		return
	}

	RespondOK(ctx, "User deleted successfully", nil)
}
