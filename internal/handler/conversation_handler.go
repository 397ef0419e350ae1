package handler

import (
	"net/http"
	"resume-chat-go/internal/middleware"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与对话相关的 API 请求。
type ConversationHandler struct {
	history service.HistoryService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(history service.HistoryService) *ConversationHandler {
	return &ConversationHandler{history: history}
}

// GetConversations 返回当前用户的全部问答记录。
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusInternalServerError, "user not available")
		return
	}

	turns, err := h.history.ListTurns(c.Request.Context(), user.ID)
	if err != nil {
		log.Errorf("GetConversations: failed for user '%s': %v", user.Username, err)
		respondServiceError(c, err)
		return
	}
	respondOK(c, turns)
}
