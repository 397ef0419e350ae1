package model

import (
	"fmt"
	"time"
)

// 消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 是会话记录（transcript）中的单条消息。
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// String 返回消息在对话窗口中的文本形式。
func (m ChatMessage) String() string {
	return fmt.Sprintf("%s: %s", m.Role, m.Content)
}

// ConversationTurn 对应 ConversationHistory 表，记录一次完整的问答。
// 写入后不可修改。
type ConversationTurn struct {
	ID            uint      `gorm:"primaryKey;column:id" json:"id"`
	UserID        uint      `gorm:"index;not null;column:user_id" json:"userId"`
	User          *User     `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	DateTime      time.Time `gorm:"autoCreateTime;not null;column:datetime" json:"datetime"`
	UserQuery     string    `gorm:"type:text;not null;column:user_query" json:"userQuery"`
	ChatbotAnswer string    `gorm:"type:text;not null;column:chatbot_answer" json:"chatbotAnswer"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ConversationTurn) TableName() string {
	return "ConversationHistory"
}
