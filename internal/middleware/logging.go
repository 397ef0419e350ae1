package middleware

import (
	"resume-chat-go/pkg/log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 是请求 ID 的请求/响应头。
const RequestIDHeader = "X-Request-ID"

// RequestLogger 是一个 Gin 中间件，为每个请求分配请求 ID 并记录访问日志。
// 请求体与响应体不记录，其中可能包含密码和 token。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestId", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		log.Infow("HTTP Request Log",
			"requestId", requestID,
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
	}
}
