package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// LogApi formats one line per request. WebSocket upgrades log when the
// connection closes, so their latency is the session length.
func LogApi() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		userID, _ := param.Keys[ContextUserID].(string)
		return fmt.Sprintf("[%s] | %s | %d | %s | %s | user=%s | %s | %s\n",
			param.TimeStamp.Format("2006-01-02 15:04:05"),
			param.ClientIP,
			param.StatusCode,
			param.Method,
			param.Path,
			userID,
			param.ErrorMessage,
			param.Latency,
		)
	})
}
