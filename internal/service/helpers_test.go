package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/pkg/database"
	"resume-chat-go/pkg/llm"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testStores struct {
	db    *gorm.DB
	users repository.UserRepository
	turns repository.ConversationRepository
}

func newTestStores(t *testing.T) testStores {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "resume_chat.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return testStores{
		db:    db,
		users: repository.NewUserRepository(db),
		turns: repository.NewConversationRepository(db),
	}
}

func (s testStores) addUser(t *testing.T, username string, maxMessages int) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Name:         username,
		PasswordHash: "x",
		Roles:        model.RoleSet{model.RoleViewer},
		MaxMessages:  maxMessages,
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	if maxMessages == 0 {
		// gorm 在零值时使用列默认值，这里显式写回 0
		require.NoError(t, s.users.UpdateMaxMessages(context.Background(), u.ID, 0))
	}
	return u
}

func (s testStores) addTurns(t *testing.T, userID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.turns.Append(context.Background(), &model.ConversationTurn{UserID: userID, UserQuery: "q", ChatbotAnswer: "a"}))
	}
}

// stubRetrieval 返回预设的检索结果。
type stubRetrieval struct {
	passages []model.Passage
	err      error
	queries  []string
}

func (s *stubRetrieval) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, s.err
}

func (s *stubRetrieval) Search(ctx context.Context, queryText string, queryVector []float32, topK int) ([]model.Passage, error) {
	return s.passages, s.err
}

func (s *stubRetrieval) Retrieve(ctx context.Context, query string, topK int) ([]model.Passage, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.passages, nil
}

func (s *stubRetrieval) Upsert(ctx context.Context, docs []model.IndexDocument) error {
	return s.err
}

// stubLLM 记录收到的消息并返回固定回答。
type stubLLM struct {
	mu       sync.Mutex
	answer   string
	err      error
	messages [][]llm.Message
	params   []llm.GenerationParams
}

func (s *stubLLM) Complete(ctx context.Context, messages []llm.Message, gen llm.GenerationParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messages)
	s.params = append(s.params, gen)
	return s.answer, s.err
}

// stubAnswer 直接返回预设结果。
type stubAnswer struct {
	result  *model.QueryResult
	err     error
	windows []string
	asOf    []time.Time
}

func (s *stubAnswer) Answer(ctx context.Context, query, window string, asOf time.Time) (*model.QueryResult, error) {
	s.windows = append(s.windows, window)
	s.asOf = append(s.asOf, asOf)
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	r.Input = query
	return &r, nil
}

type memBlacklist struct {
	entries map[string]time.Duration
}

func (m *memBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.entries[token] = ttl
	return nil
}

func (m *memBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	_, ok := m.entries[token]
	return ok, nil
}
