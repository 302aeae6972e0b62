package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The /run and /health payload shapes are part of the public API contract,
// so success responses are written verbatim by the handlers. Errors share
// one envelope.
func Error(c *gin.Context, status int, code int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}
