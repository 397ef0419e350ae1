package handler

import (
	"net/http"
	"resume-chat-go/internal/middleware"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理当前用户的信息与配额查询。
type UserHandler struct {
	quotaService service.QuotaService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(quotaService service.QuotaService) *UserHandler {
	return &UserHandler{quotaService: quotaService}
}

// QuotaResponse 描述当前用户的提问配额。
type QuotaResponse struct {
	Used        int64 `json:"used"`
	Max         int   `json:"max"`
	Remaining   int64 `json:"remaining"`
	WithinQuota bool  `json:"withinQuota"`
}

// GetProfile 获取当前登录用户的个人信息。
// 用户信息已经由 AuthMiddleware 注入到上下文中。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusInternalServerError, "user not available")
		return
	}
	respondOK(c, user)
}

// GetQuota 返回当前用户已用与剩余的提问次数。
func (h *UserHandler) GetQuota(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusInternalServerError, "user not available")
		return
	}

	used, err := h.quotaService.MessageCount(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("GetQuota: failed for user '%s': %v", user.Username, err)
		respondServiceError(c, err)
		return
	}
	limit, err := h.quotaService.MaxMessages(c.Request.Context(), user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	remaining := int64(limit) - used
	if remaining < 0 {
		remaining = 0
	}
	respondOK(c, QuotaResponse{
		Used:        used,
		Max:         limit,
		Remaining:   remaining,
		WithinQuota: used < int64(limit),
	})
}
