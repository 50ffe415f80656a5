package middlewares

import (
	"github.com/gin-gonic/gin"
)

// abort writes the error envelope. It mirrors handlers.RespondError, which
// cannot be imported from here.
func abort(c *gin.Context, status int, message string) {
	body := gin.H{
		"status":  "error",
		"message": message,
	}
	if id := RequestIDFrom(c); id != "" {
		body["requestId"] = id
	}
	c.AbortWithStatusJSON(status, body)
}
