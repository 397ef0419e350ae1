// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/token"
	"strings"

	"github.com/gin-gonic/gin"
)

// 存入 gin.Context 的键。
const (
	ContextUserKey   = "user"
	ContextClaimsKey = "claims"
	ContextTokenKey  = "token"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它会从请求头中提取 token，验证其有效性并检查黑名单，然后将完整的 User 对象存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		user, claims, status, msg := Authenticate(c, jwtManager, userService, tokenString)
		if status != http.StatusOK {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextClaimsKey, claims)
		c.Set(ContextTokenKey, tokenString)
		c.Next()
	}
}

// Authenticate 校验 token 并加载用户，返回应使用的 HTTP 状态码。
// WebSocket 握手从路径中取 token，也复用这里的逻辑。
func Authenticate(c *gin.Context, jwtManager *token.JWTManager, userService service.UserService, tokenString string) (*model.User, *token.CustomClaims, int, string) {
	claims, err := jwtManager.VerifyToken(tokenString)
	if err != nil {
		return nil, nil, http.StatusUnauthorized, "invalid or expired token"
	}

	revoked, err := userService.IsTokenRevoked(c.Request.Context(), tokenString)
	if err != nil {
		log.Errorf("[AuthMiddleware] 查询 token 黑名单失败: %v", err)
		return nil, nil, http.StatusServiceUnavailable, "authentication temporarily unavailable"
	}
	if revoked {
		return nil, nil, http.StatusUnauthorized, "token has been revoked"
	}

	user, err := userService.GetProfile(c.Request.Context(), claims.Username)
	if err != nil {
		// 用户可能已被删除
		return nil, nil, http.StatusUnauthorized, "user not found"
	}
	return user, claims, http.StatusOK, ""
}

// CurrentUser 返回 AuthMiddleware 存入的用户。
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
