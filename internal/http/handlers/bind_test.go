package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/handlers"
)

func bindRouter[T any]() *gin.Engine {
	r := gin.New()
	r.POST("/bind", func(ctx *gin.Context) {
		var req T
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})
	r.GET("/query", func(ctx *gin.Context) {
		var q task.ListTasksQuery
		if !handlers.BindQuery(ctx, &q) {
			return
		}
		ctx.JSON(http.StatusOK, q)
	})
	return r
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	r := bindRouter[user.RegisterRequest]()

	body := `{"username":"bad name!","email":"nope","password":"abcdef","role":"admin"}`
	w, env := do(t, r, http.MethodPost, "/bind", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if env.Status != "error" || env.Message != "Validation failed" {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	want := map[string]string{
		"username":  "alphanum",
		"email":     "email",
		"password":  "strongpassword",
	}

	found := fieldRules(env.Errors)
	for field, rule := range want {
		if found[field] != rule {
			t.Fatalf("field %q rule = %q, want %q (all: %+v)", field, found[field], rule, env.Errors)
		}
	}
	for _, fe := range env.Errors {
		if fe.Message == "" {
			t.Fatalf("field %q should include a non-empty message", fe.Field)
		}
	}
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	r := bindRouter[task.CreateTaskRequest]()

	w, env := do(t, r, http.MethodPost, "/bind", `{"title":42}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if len(env.Errors) != 1 {
		t.Fatalf("expected one field error, got %+v", env.Errors)
	}
	if env.Errors[0].Field != "title" || env.Errors[0].Rule != "type" {
		t.Fatalf("unexpected field error: %+v", env.Errors[0])
	}
}

func TestBindJSON_MalformedAndEmptyBodies(t *testing.T) {
	r := bindRouter[task.CreateTaskRequest]()

	cases := []struct {
		name string
		body string
		rule string
	}{
		{"syntax", `{"title":`, "json"},
		{"garbage", `{title}`, "json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := do(t, r, http.MethodPost, "/bind", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
			}
			if len(env.Errors) != 1 || env.Errors[0].Rule != tc.rule {
				t.Fatalf("unexpected errors: %+v", env.Errors)
			}
		})
	}
}

func TestBindJSON_UpdateAcceptsPartialBodies(t *testing.T) {
	r := bindRouter[task.UpdateTaskRequest]()

	w, _ := do(t, r, http.MethodPost, "/bind", `{"status":"completed"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	w, env := do(t, r, http.MethodPost, "/bind", `{"title":"","priority":"urgent"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	found := fieldRules(env.Errors)
	if found["title"] != "min" || found["priority"] != "oneof" {
		t.Fatalf("unexpected errors: %+v", env.Errors)
	}
}

func TestBindQuery_DefaultsAndBounds(t *testing.T) {
	r := bindRouter[task.ListTasksQuery]()

	w, _ := do(t, r, http.MethodGet, "/query", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if w.Body.String() == "" {
		t.Fatalf("expected the bound query back")
	}

	w, env := do(t, r, http.MethodGet, "/query?limit=500&page=0&status=done", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	found := fieldRules(env.Errors)
	if found["limit"] != "max" || found["page"] != "min" || found["status"] != "oneof" {
		t.Fatalf("unexpected errors: %+v", env.Errors)
	}
}
