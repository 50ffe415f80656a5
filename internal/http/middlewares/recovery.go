package middlewares

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into a 500 envelope. Stacks are only echoed back
// outside release mode.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		stack := debug.Stack()

		slog.Default().ErrorContext(c.Request.Context(), "panic recovered",
			"panic", fmt.Sprint(rec),
			"request_id", RequestIDFrom(c),
			"stack", string(stack),
		)

		body := gin.H{
			"status":  "error",
			"message": "Internal server error",
		}
		if id := RequestIDFrom(c); id != "" {
			body["requestId"] = id
		}
		if gin.Mode() != gin.ReleaseMode {
			body["stack"] = string(stack)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
