package middleware

import (
	"brokerdesk/internal/transport/httpdto"
	"brokerdesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler turns deferred gin errors into taxonomy-mapped responses.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.WithContext(c.Request.Context()).Error("request error", zap.Error(err))
		}
		status, code := httpdto.StatusFor(err)
		if !c.Writer.Written() {
			c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
		}
	}
}
