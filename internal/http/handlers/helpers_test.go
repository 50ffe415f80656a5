package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/taskhub/internal/actorctx"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/service"
	"github.com/geocoder89/taskhub/internal/validation"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
	validation.Register()
}

type envelope struct {
	Status     string                `json:"status"`
	Message    string                `json:"message"`
	Data       json.RawMessage       `json:"data"`
	Pagination *service.Pagination   `json:"pagination"`
	Errors     []handlers.FieldError `json:"errors"`
}

var (
	alice = actorctx.Actor{ID: "alice-id", Username: "alice", Email: "alice@example.com", Role: "user"}
	admin = actorctx.Actor{ID: "admin-id", Username: "root", Email: "root@example.com", Role: "admin"}
)

// as injects an authenticated actor the way RequireAuth would.
func as(a actorctx.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), a))
		c.Next()
	}
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("failed to unmarshal response: %v body=%s", err, w.Body.String())
		}
	}
	return w, env
}

func fieldRules(errs []handlers.FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Rule
	}
	return out
}
