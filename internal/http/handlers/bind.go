package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON binds and validates the body. On failure it writes the 400 (or
// 413) envelope and returns false.
func BindJSON(ctx *gin.Context, out any) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		respondBindError(ctx, err)
		return false
	}
	return true
}

// BindQuery is BindJSON for query strings.
func BindQuery(ctx *gin.Context, out any) bool {
	if err := ctx.ShouldBindQuery(out); err != nil {
		respondBindError(ctx, err)
		return false
	}
	return true
}

func respondBindError(ctx *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "Request body too large", nil)
		return
	}

	RespondBadRequest(ctx, "Validation failed", fieldErrors(err))
}

// fieldErrors flattens a binding failure into one entry per offending field.
// Field names are the wire names registered by the validation package.
func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{
				Field:   wirePath(fe.Namespace()),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return out
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		numErr    *strconv.NumError
	)

	switch {
	case errors.Is(err, io.EOF):
		return []FieldError{{Field: "body", Rule: "required", Message: "request body is required"}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return []FieldError{{Field: "body", Rule: "json", Message: "must be valid JSON"}}
	case errors.As(err, &typeErr):
		return []FieldError{{
			Field:   typeErr.Field,
			Rule:    "type",
			Message: fmt.Sprintf("must be of type %s", typeErr.Type),
		}}
	case errors.As(err, &numErr):
		return []FieldError{{Field: "query", Rule: "type", Message: "must be a number"}}
	}

	return []FieldError{{Field: "body", Rule: "invalid", Message: err.Error()}}
}

// wirePath drops the root struct name: "RegisterRequest.adminCode" -> "adminCode".
func wirePath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return rest
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "alphanum":
		return "must only contain alpha-numeric characters"
	case "strongpassword":
		return "must contain at least one lowercase letter, one uppercase letter, and one number"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	}

	if param != "" {
		return fmt.Sprintf("failed %s validation (%s)", rule, param)
	}
	return "failed " + rule + " validation"
}
