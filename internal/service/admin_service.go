package service

import (
	"context"
	"errors"
	"fmt"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"time"

	"gorm.io/gorm"
)

// UserListResponse 定义了用户列表 API 的响应结构。
type UserListResponse struct {
	Content       []UserDetailResponse `json:"content"`
	TotalElements int64                `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	Size          int                  `json:"size"`
	Number        int                  `json:"number"`
}

// UserDetailResponse 定义了用户列表项的详细结构。
type UserDetailResponse struct {
	UserID         uint          `json:"userId"`
	Username       string        `json:"username"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	Roles          model.RoleSet `json:"roles"`
	MaxMessages    int           `json:"maxMessages"`
	MessageCount   int64         `json:"messageCount"`
	FailedAttempts int           `json:"failedAttempts"`
	LoggedIn       bool          `json:"loggedIn"`
}

// ConversationEntry 是管理端查看的一条问答记录。
type ConversationEntry struct {
	TurnID        uint   `json:"turnId"`
	UserID        uint   `json:"userId"`
	Username      string `json:"username"`
	UserQuery     string `json:"userQuery"`
	ChatbotAnswer string `json:"chatbotAnswer"`
	Timestamp     string `json:"timestamp"`
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	ListUsers(ctx context.Context, page, size int) (*UserListResponse, error)
	SetMaxMessages(ctx context.Context, userID uint, maxMessages int) error
	GetAllConversations(ctx context.Context, userID *uint, startTime, endTime *time.Time) ([]ConversationEntry, error)
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	userRepo repository.UserRepository
	history  HistoryService
	quota    QuotaService
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(userRepo repository.UserRepository, history HistoryService, quota QuotaService) AdminService {
	return &adminService{userRepo: userRepo, history: history, quota: quota}
}

// ListUsers 以分页的形式返回用户列表，page 从 1 开始。
func (s *adminService) ListUsers(ctx context.Context, page, size int) (*UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	offset := (page - 1) * size
	users, total, err := s.userRepo.FindWithPagination(ctx, offset, size)
	if err != nil {
		return nil, err
	}

	userResponses := make([]UserDetailResponse, 0, len(users))
	for _, u := range users {
		count, err := s.quota.MessageCount(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		userResponses = append(userResponses, UserDetailResponse{
			UserID:         u.ID,
			Username:       u.Username,
			Name:           u.Name,
			Email:          u.Email,
			Roles:          u.Roles,
			MaxMessages:    u.MaxMessages,
			MessageCount:   count,
			FailedAttempts: u.FailedAttempts,
			LoggedIn:       u.LoggedIn,
		})
	}

	totalPages := 0
	if total > 0 {
		totalPages = (int(total) + size - 1) / size
	}

	return &UserListResponse{
		Content:       userResponses,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}, nil
}

// SetMaxMessages 调整用户的提问上限，上限不能为负数。
func (s *adminService) SetMaxMessages(ctx context.Context, userID uint, maxMessages int) error {
	if maxMessages < 0 {
		return fmt.Errorf("maxMessages must not be negative: %d", maxMessages)
	}
	if err := s.userRepo.UpdateMaxMessages(ctx, userID, maxMessages); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// GetAllConversations retrieves conversation turns for all or a specific user, with optional date filtering.
func (s *adminService) GetAllConversations(ctx context.Context, userID *uint, startTime, endTime *time.Time) ([]ConversationEntry, error) {
	if userID != nil {
		if _, err := s.userRepo.FindByID(ctx, *userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}

	turns, err := s.history.ListAll(ctx, repository.TurnFilter{UserID: userID, StartTime: startTime, EndTime: endTime})
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation turns: %w", err)
	}

	usernames := make(map[uint]string)
	entries := make([]ConversationEntry, 0, len(turns))
	for _, t := range turns {
		name, ok := usernames[t.UserID]
		if !ok {
			if u, err := s.userRepo.FindByID(ctx, t.UserID); err == nil {
				name = u.Username
			}
			usernames[t.UserID] = name
		}
		entries = append(entries, ConversationEntry{
			TurnID:        t.ID,
			UserID:        t.UserID,
			Username:      name,
			UserQuery:     t.UserQuery,
			ChatbotAnswer: t.ChatbotAnswer,
			Timestamp:     t.DateTime.Format("2006-01-02T15:04:05"),
		})
	}
	return entries, nil
}
