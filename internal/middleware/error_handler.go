package middleware

import (
	"github.com/gin-gonic/gin"
	"volunteer_chat/pkg/errors"
)

// ErrorHandler renders the last error attached with c.Error if the handler
// did not write a response itself.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		c.JSON(errors.HTTPStatusFromError(err), gin.H{
			"error": err.Error(),
			"code":  errors.CodeFromError(err),
		})
	}
}
