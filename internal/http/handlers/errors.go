package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/service"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// Order matters: the combined not-found-or-denied error is checked before the
// plain not-found sentinels.
var serviceErrors = []errorMapping{
	{service.ErrEmptyPatch, http.StatusBadRequest, "No valid fields provided for update"},
	{service.ErrWrongPassword, http.StatusBadRequest, "Current password is incorrect"},
	{service.ErrSelfDelete, http.StatusBadRequest, "Cannot delete your own account"},
	{user.ErrEmailTaken, http.StatusBadRequest, "User with this email already exists"},
	{user.ErrUsernameTaken, http.StatusBadRequest, "Username already taken"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{service.ErrInvalidAdminCode, http.StatusForbidden, "Invalid admin code. Please contact administrator for the correct code."},
	{service.ErrAccessDenied, http.StatusForbidden, "Access denied"},
	{service.ErrTaskNotFoundOrDenied, http.StatusNotFound, "Task not found or access denied"},
	{task.ErrNotFound, http.StatusNotFound, "Task not found"},
	{user.ErrNotFound, http.StatusNotFound, "User not found"},
}

// RespondServiceError translates a service error into the envelope. Anything
// unrecognised becomes a 500 carrying fallback as its message.
func RespondServiceError(ctx *gin.Context, err error, fallback string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			RespondError(ctx, m.status, m.message, nil)
			return
		}
	}
	RespondInternal(ctx, fallback, err)
}
