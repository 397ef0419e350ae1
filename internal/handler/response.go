// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"resume-chat-go/internal/service"

	"github.com/gin-gonic/gin"
)

// unavailableMessage 是依赖服务故障时展示给用户的通用提示。
const unavailableMessage = "The assistant is temporarily unavailable. Please try again later."

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}

// statusForError 把服务层错误映射为 HTTP 状态码与展示文本。
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, service.ErrQuotaCheckUnavailable),
		errors.Is(err, service.ErrRetrievalUnavailable),
		errors.Is(err, service.ErrAnswerGenerationFailed):
		return http.StatusServiceUnavailable, unavailableMessage
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func respondServiceError(c *gin.Context, err error) {
	status, message := statusForError(err)
	respondError(c, status, message)
}
