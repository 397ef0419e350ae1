package handler

import (
	"errors"
	"net/http"
	"resume-chat-go/internal/middleware"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责登录与登出。
type AuthHandler struct {
	userService service.UserService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// LoginRequest 定义了用户登录 API 的请求体结构。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		respondError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	accessToken, user, err := h.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warnf("Login: User authentication failed for '%s'", req.Username)
		} else {
			log.Errorf("Login: unexpected error for '%s': %v", req.Username, err)
		}
		respondServiceError(c, err)
		return
	}

	log.Infof("User '%s' logged in successfully", req.Username)
	respondOK(c, gin.H{
		"token": accessToken,
		"user":  user,
	})
}

// Logout 处理用户登出逻辑。
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenString := c.GetString(middleware.ContextTokenKey)
	if err := h.userService.Logout(c.Request.Context(), tokenString); err != nil {
		log.Error("Logout: Failed to logout", err)
		respondError(c, http.StatusInternalServerError, "logout failed")
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		log.Infof("User '%s' logged out successfully", user.Username)
	}
	respondOK(c, nil)
}
