package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"resume-chat-go/internal/middleware"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/token"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// WebSocket 消息类型。
const (
	wsTypeWelcome = "welcome"
	wsTypeAnswer  = "answer"
	wsTypeError   = "error"
)

// wsMessage 是服务端推送给客户端的 WebSocket 消息。
type wsMessage struct {
	Type      string          `json:"type"`
	Content   string          `json:"content,omitempty"`
	Context   []model.Passage `json:"context,omitempty"`
	Code      int             `json:"code,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ChatHandler 负责问答接口与 WebSocket 会话。
type ChatHandler struct {
	chatService service.ChatService
	userService service.UserService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, userService service.UserService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// AskRequest 是 POST /chat 的请求体，messages 的最后一条是当前问题。
type AskRequest struct {
	Messages []model.ChatMessage `json:"messages" binding:"required,min=1,dive"`
}

// Welcome 返回用于初始化会话的欢迎语。
func (h *ChatHandler) Welcome(c *gin.Context) {
	respondOK(c, gin.H{"role": model.RoleAssistant, "content": h.chatService.WelcomeMessage()})
}

// Ask 回答 messages 中的最后一个问题。
func (h *ChatHandler) Ask(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusInternalServerError, "user not available")
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "messages must be a non-empty list of {role, content}")
		return
	}
	if last := req.Messages[len(req.Messages)-1]; last.Role != model.RoleUser || strings.TrimSpace(last.Content) == "" {
		respondError(c, http.StatusBadRequest, "the last message must be a non-empty user question")
		return
	}

	result, err := h.chatService.Ask(c.Request.Context(), user.Username, req.Messages)
	if err != nil {
		if !errors.Is(err, service.ErrQuotaExceeded) {
			log.Errorf("[ChatHandler] 问答失败, user: %s, err: %v", user.Username, err)
		}
		respondServiceError(c, err)
		return
	}
	respondOK(c, result)
}

// Handle 处理一个传入的 WebSocket 连接。会话记录只保存在连接内，以欢迎语开头。
func (h *ChatHandler) Handle(c *gin.Context) {
	user, _, status, msg := middleware.Authenticate(c, h.jwtManager, h.userService, c.Param("token"))
	if status != http.StatusOK {
		respondError(c, status, msg)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("[ChatHandler] WebSocket 连接已建立，用户: %s", user.Username)

	welcome := h.chatService.WelcomeMessage()
	transcript := []model.ChatMessage{{Role: model.RoleAssistant, Content: welcome}}
	if err := writeWS(conn, wsMessage{Type: wsTypeWelcome, Content: welcome}); err != nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("[ChatHandler] 从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		question := parseQuestion(message)
		if question == "" {
			_ = writeWS(conn, wsMessage{Type: wsTypeError, Code: http.StatusBadRequest, Content: "empty question"})
			continue
		}

		transcript = append(transcript, model.ChatMessage{Role: model.RoleUser, Content: question})
		result, err := h.chatService.Ask(c.Request.Context(), user.Username, transcript)
		if err != nil {
			// 去掉未回答的问题，保持会话记录首尾约定
			transcript = transcript[:len(transcript)-1]
			code, text := statusForError(err)
			if code != http.StatusTooManyRequests {
				log.Errorf("[ChatHandler] 问答失败, user: %s, err: %v", user.Username, err)
			}
			if werr := writeWS(conn, wsMessage{Type: wsTypeError, Code: code, Content: text}); werr != nil {
				return
			}
			continue
		}

		transcript = append(transcript, model.ChatMessage{Role: model.RoleAssistant, Content: result.Answer})
		if err := writeWS(conn, wsMessage{Type: wsTypeAnswer, Content: result.Answer, Context: result.Context}); err != nil {
			return
		}
	}
}

// parseQuestion 接受纯文本或 {"content": "..."} 形式的消息。
func parseQuestion(message []byte) string {
	text := strings.TrimSpace(string(message))
	if strings.HasPrefix(text, "{") {
		var payload struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(message, &payload); err == nil {
			return strings.TrimSpace(payload.Content)
		}
	}
	return text
}

func writeWS(conn *websocket.Conn, msg wsMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(msg); err != nil {
		log.Warnf("[ChatHandler] 写入 WebSocket 失败: %v", err)
		return err
	}
	return nil
}
