package service

import (
	"context"
	"fmt"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
)

// HistoryService 负责问答记录的追加与查询。
type HistoryService interface {
	AppendTurn(ctx context.Context, userID uint, query, answer string) error
	ListTurns(ctx context.Context, userID uint) ([]model.ConversationTurn, error)
	ListAll(ctx context.Context, filter repository.TurnFilter) ([]model.ConversationTurn, error)
}

type historyService struct {
	conversationRepo repository.ConversationRepository
}

// NewHistoryService 创建一个新的 HistoryService 实例。
func NewHistoryService(conversationRepo repository.ConversationRepository) HistoryService {
	return &historyService{conversationRepo: conversationRepo}
}

// AppendTurn 写入一轮完整问答，时间戳由存储层生成。
func (s *historyService) AppendTurn(ctx context.Context, userID uint, query, answer string) error {
	turn := &model.ConversationTurn{
		UserID:        userID,
		UserQuery:     query,
		ChatbotAnswer: answer,
	}
	if err := s.conversationRepo.Append(ctx, turn); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	return nil
}

func (s *historyService) ListTurns(ctx context.Context, userID uint) ([]model.ConversationTurn, error) {
	return s.conversationRepo.FindByUserID(ctx, userID)
}

func (s *historyService) ListAll(ctx context.Context, filter repository.TurnFilter) ([]model.ConversationTurn, error) {
	return s.conversationRepo.Find(ctx, filter)
}
