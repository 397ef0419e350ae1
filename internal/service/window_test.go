package service

import (
	"testing"

	"resume-chat-go/internal/model"

	"github.com/stretchr/testify/assert"
)

func msg(role, content string) model.ChatMessage {
	return model.ChatMessage{Role: role, Content: content}
}

func TestBuildConversationWindow_ShortTranscript(t *testing.T) {
	assert.Equal(t, NoPreviousMessages, BuildConversationWindow(nil, 6))
	assert.Equal(t, NoPreviousMessages, BuildConversationWindow([]model.ChatMessage{msg("assistant", "welcome")}, 6))
	assert.Equal(t, NoPreviousMessages, BuildConversationWindow([]model.ChatMessage{
		msg("assistant", "welcome"),
		msg("user", "anything at all"),
	}, 6))
}

func TestBuildConversationWindow_DropsWelcomeAndPendingQuestion(t *testing.T) {
	transcript := []model.ChatMessage{
		msg("assistant", "welcome"),
		msg("user", "q1"),
		msg("assistant", "a1"),
		msg("user", "q2"),
		msg("assistant", "a2"),
		msg("user", "q3"),
	}
	got := BuildConversationWindow(transcript, 6)
	assert.Equal(t, "user: q1\nassistant: a1\nuser: q2\nassistant: a2", got)
}

func TestBuildConversationWindow_KeepsLastN(t *testing.T) {
	transcript := []model.ChatMessage{msg("assistant", "welcome")}
	for i := 0; i < 5; i++ {
		transcript = append(transcript, msg("user", "q"), msg("assistant", "a"))
	}
	transcript = append(transcript, msg("user", "pending"))

	got := BuildConversationWindow(transcript, 3)
	assert.Equal(t, "assistant: a\nuser: q\nassistant: a", got)
}

func TestBuildConversationWindow_UnsetSizeKeepsAll(t *testing.T) {
	transcript := []model.ChatMessage{
		msg("assistant", "welcome"),
		msg("user", "q1"),
		msg("assistant", "a1"),
		msg("user", "q2"),
		msg("assistant", "a2"),
		msg("user", "q3"),
		msg("assistant", "a3"),
		msg("user", "q4"),
		msg("assistant", "a4"),
		msg("user", "q5"),
	}
	got := BuildConversationWindow(transcript, 0)
	assert.Equal(t, "user: q1\nassistant: a1\nuser: q2\nassistant: a2\nuser: q3\nassistant: a3\nuser: q4\nassistant: a4", got)
}

func TestBuildConversationWindow_Deterministic(t *testing.T) {
	transcript := []model.ChatMessage{msg("assistant", "w"), msg("user", "q1"), msg("assistant", "a1"), msg("user", "q2")}
	assert.Equal(t, BuildConversationWindow(transcript, 6), BuildConversationWindow(transcript, 6))
}

func TestBuildConversationWindow_RoleAware(t *testing.T) {
	// 没有欢迎语，末尾有两条未回答的问题
	transcript := []model.ChatMessage{
		msg("user", "q1"),
		msg("assistant", "a1"),
		msg("user", "q2"),
		msg("user", "q2 again"),
	}
	got := BuildConversationWindow(transcript, 6, WithRoleAwareTrim())
	assert.Equal(t, "user: q1\nassistant: a1", got)

	// 与按位置裁剪的结果对比
	assert.Equal(t, "assistant: a1\nuser: q2", BuildConversationWindow(transcript, 6))
}

func TestBuildConversationWindow_RoleAwareNothingLeft(t *testing.T) {
	transcript := []model.ChatMessage{
		msg("assistant", "welcome"),
		msg("user", "q1"),
		msg("user", "q1 again"),
	}
	assert.Equal(t, NoPreviousMessages, BuildConversationWindow(transcript, 6, WithRoleAwareTrim()))
}
