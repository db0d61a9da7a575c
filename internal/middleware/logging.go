package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"launchgpt-go/pkg/log"
)

// RequestLogger 记录每个请求的状态码、耗时、来源与路径。
// 请求体与响应体不写日志：其中包含密码与会话令牌。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if id, ok := CurrentIdentity(c); ok {
			fields = append(fields, "userId", id.UserID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		log.Infow("HTTP Request Log", fields...)
	}
}
