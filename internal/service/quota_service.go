package service

import (
	"context"
	"errors"
	"fmt"
	"resume-chat-go/internal/repository"

	"gorm.io/gorm"
)

// QuotaService 判断用户是否还能继续提问。只读，不修改任何数据。
type QuotaService interface {
	GetUserID(ctx context.Context, username string) (uint, error)
	MessageCount(ctx context.Context, userID uint) (int64, error)
	MaxMessages(ctx context.Context, userID uint) (int, error)
	IsWithinQuota(ctx context.Context, userID uint) (bool, error)
}

type quotaService struct {
	userRepo         repository.UserRepository
	conversationRepo repository.ConversationRepository
}

// NewQuotaService 创建一个新的 QuotaService 实例。
func NewQuotaService(userRepo repository.UserRepository, conversationRepo repository.ConversationRepository) QuotaService {
	return &quotaService{userRepo: userRepo, conversationRepo: conversationRepo}
}

// GetUserID 按用户名精确查找用户 ID。用户不存在时返回 ErrUserNotFound。
func (s *quotaService) GetUserID(ctx context.Context, username string) (uint, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("%w: %w", ErrQuotaCheckUnavailable, err)
	}
	return user.ID, nil
}

// MessageCount 返回用户已完成的问答数。
func (s *quotaService) MessageCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.conversationRepo.CountByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuotaCheckUnavailable, err)
	}
	return count, nil
}

// MaxMessages 返回用户的提问上限。
func (s *quotaService) MaxMessages(ctx context.Context, userID uint) (int, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("%w: %w", ErrQuotaCheckUnavailable, err)
	}
	return user.MaxMessages, nil
}

// IsWithinQuota 当已提问数严格小于上限时返回 true。
func (s *quotaService) IsWithinQuota(ctx context.Context, userID uint) (bool, error) {
	limit, err := s.MaxMessages(ctx, userID)
	if err != nil {
		return false, err
	}
	count, err := s.MessageCount(ctx, userID)
	if err != nil {
		return false, err
	}
	return count < int64(limit), nil
}
