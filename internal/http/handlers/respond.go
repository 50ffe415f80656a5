package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/service"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type Envelope struct {
	Status     string              `json:"status"`
	Message    string              `json:"message"`
	Data       any                 `json:"data,omitempty"`
	Pagination *service.Pagination `json:"pagination,omitempty"`
}

type ErrorEnvelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Errors    any    `json:"errors,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Stack     string `json:"stack,omitempty"`
}

func RespondOK(ctx *gin.Context, message string, data any) {
	ctx.JSON(http.StatusOK, Envelope{Status: statusSuccess, Message: message, Data: data})
}

func RespondCreated(ctx *gin.Context, message string, data any) {
	ctx.JSON(http.StatusCreated, Envelope{Status: statusSuccess, Message: message, Data: data})
}

func RespondPage(ctx *gin.Context, message string, data any, p service.Pagination) {
	ctx.JSON(http.StatusOK, Envelope{Status: statusSuccess, Message: message, Data: data, Pagination: &p})
}

func RespondError(ctx *gin.Context, status int, message string, errs any) {
	ctx.AbortWithStatusJSON(status, ErrorEnvelope{
		Status:    statusError,
		Message:   message,
		Errors:    errs,
		RequestID: middlewares.RequestIDFrom(ctx),
	})
}

func RespondBadRequest(ctx *gin.Context, message string, errs any) {
	RespondError(ctx, http.StatusBadRequest, message, errs)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message, nil)
}

// RespondInternal logs err against the request and answers a generic 500.
// Outside release mode the error text is echoed back as the stack field.
func RespondInternal(ctx *gin.Context, message string, err error) {
	reqID := middlewares.RequestIDFrom(ctx)

	slog.Default().ErrorContext(ctx.Request.Context(), "request failed",
		"err", err,
		"request_id", reqID,
		"route", ctx.FullPath(),
	)

	body := ErrorEnvelope{Status: statusError, Message: message, RequestID: reqID}
	if gin.Mode() != gin.ReleaseMode && err != nil {
		body.Stack = err.Error()
	}
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
