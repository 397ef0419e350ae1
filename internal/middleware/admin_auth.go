package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware 检查用户是否具有管理员权限。
// 此中间件必须在 AuthMiddleware 之后使用。
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		currentUser, ok := CurrentUser(c)
		if !ok {
			// AuthMiddleware 未能设置用户，属于服务端装配错误
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user not available"})
			return
		}

		if !currentUser.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}

		c.Next()
	}
}
