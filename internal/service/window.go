package service

import (
	"resume-chat-go/internal/model"
	"strings"
)

// NoPreviousMessages 是历史不足时给模型的占位文本。
const NoPreviousMessages = "no previous messages"

// DefaultWindowSize 是默认保留的历史消息条数。
const DefaultWindowSize = 6

// TranscriptShape 描述会话记录的首尾约定，决定哪些消息不属于历史。
type TranscriptShape int

const (
	// ShapePositional 假定第一条是欢迎语、最后一条是尚未回答的问题，按位置去掉这两条。
	ShapePositional TranscriptShape = iota
	// ShapeRoleAware 只把开头的 assistant 消息当作欢迎语，把末尾连续的 user 消息当作未回答的问题。
	ShapeRoleAware
)

type windowOptions struct {
	shape TranscriptShape
}

// WindowOption 调整 BuildConversationWindow 的行为。
type WindowOption func(*windowOptions)

// WithRoleAwareTrim 用于不以欢迎语开头或末尾有多条未回答问题的会话。
func WithRoleAwareTrim() WindowOption {
	return func(o *windowOptions) {
		o.shape = ShapeRoleAware
	}
}

// BuildConversationWindow 把会话记录压缩为给模型的历史文本。
// size <= 0 表示不限制条数。记录不超过两条时返回 NoPreviousMessages。
func BuildConversationWindow(transcript []model.ChatMessage, size int, opts ...WindowOption) string {
	o := windowOptions{shape: ShapePositional}
	for _, opt := range opts {
		opt(&o)
	}

	if len(transcript) <= 2 {
		return NoPreviousMessages
	}

	var history []model.ChatMessage
	switch o.shape {
	case ShapeRoleAware:
		history = trimByRole(transcript)
	default:
		history = transcript[1 : len(transcript)-1]
	}
	if len(history) == 0 {
		return NoPreviousMessages
	}

	if size > 0 && len(history) > size {
		history = history[len(history)-size:]
	}

	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = m.String()
	}
	return strings.Join(lines, "\n")
}

func trimByRole(transcript []model.ChatMessage) []model.ChatMessage {
	start, end := 0, len(transcript)
	if transcript[0].Role == model.RoleAssistant {
		start = 1
	}
	for end > start && transcript[end-1].Role == model.RoleUser {
		end--
	}
	return transcript[start:end]
}
