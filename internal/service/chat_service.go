// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"resume-chat-go/internal/metrics"
	"resume-chat-go/internal/model"
	"resume-chat-go/pkg/log"
	"time"
)

// ChatOptions 配置 ChatService。
type ChatOptions struct {
	OwnerName  string
	WindowSize int
	// RoleAwareTrim 对应 WithRoleAwareTrim，适用于不以欢迎语开头的会话。
	RoleAwareTrim bool
}

// ChatService 串起一次完整的问答：配额检查、历史窗口、生成回答、写入记录。
type ChatService interface {
	// Ask 回答 transcript 中最后一条消息。transcript 通常以欢迎语开头。
	Ask(ctx context.Context, username string, transcript []model.ChatMessage) (*model.QueryResult, error)
	WelcomeMessage() string
	QuotaExceededMessage() string
}

type chatService struct {
	quota   QuotaService
	history HistoryService
	answer  AnswerService
	opts    ChatOptions
	now     func() time.Time
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(quota QuotaService, history HistoryService, answer AnswerService, opts ChatOptions) ChatService {
	if opts.WindowSize == 0 {
		opts.WindowSize = DefaultWindowSize
	}
	return &chatService{
		quota:   quota,
		history: history,
		answer:  answer,
		opts:    opts,
		now:     time.Now,
	}
}

func (s *chatService) WelcomeMessage() string {
	owner := s.opts.OwnerName
	return fmt.Sprintf("Hi there! I'm here to help you explore %s's resume. "+
		"Whether you're looking for their experience, skills, or qualifications, feel free to ask! "+
		"This chatbot was built by %s to help recruiters like you quickly understand their professional profile. "+
		"How can I help you today?", owner, owner)
}

func (s *chatService) QuotaExceededMessage() string {
	return fmt.Sprintf("Oops! Message limit reached. To continue chatting, please contact %s to request an increase in your message limit.", s.opts.OwnerName)
}

// Ask 在配额允许时回答问题。配额无法确认时拒绝回答。
func (s *chatService) Ask(ctx context.Context, username string, transcript []model.ChatMessage) (*model.QueryResult, error) {
	if len(transcript) == 0 || transcript[len(transcript)-1].Role != model.RoleUser {
		return nil, errors.New("transcript must end with a user message")
	}
	query := transcript[len(transcript)-1].Content

	userID, err := s.quota.GetUserID(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			metrics.AnswersTotal.WithLabelValues(metrics.StatusQuotaUnavailable).Inc()
		}
		return nil, err
	}
	allowed, err := s.quota.IsWithinQuota(ctx, userID)
	if err != nil {
		log.Errorf("[ChatService] 配额检查失败, user: %s, err: %v", username, err)
		metrics.AnswersTotal.WithLabelValues(metrics.StatusQuotaUnavailable).Inc()
		return nil, err
	}
	if !allowed {
		log.Infof("[ChatService] 用户 %s 已达到提问上限", username)
		metrics.QuotaRejections.Inc()
		metrics.AnswersTotal.WithLabelValues(metrics.StatusQuotaExceeded).Inc()
		return nil, &QuotaExceededError{Message: s.QuotaExceededMessage()}
	}

	var windowOpts []WindowOption
	if s.opts.RoleAwareTrim {
		windowOpts = append(windowOpts, WithRoleAwareTrim())
	}
	window := BuildConversationWindow(transcript, s.opts.WindowSize, windowOpts...)

	start := time.Now()
	result, err := s.answer.Answer(ctx, query, window, s.now())
	metrics.AnswerDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		status := metrics.StatusGenerationFailed
		if errors.Is(err, ErrRetrievalUnavailable) {
			status = metrics.StatusRetrievalFailed
		}
		metrics.AnswersTotal.WithLabelValues(status).Inc()
		return nil, err
	}
	metrics.AnswersTotal.WithLabelValues(metrics.StatusOK).Inc()

	// 即使请求已被取消，也要保存已经生成的回答
	if err := s.history.AppendTurn(context.WithoutCancel(ctx), userID, query, result.Answer); err != nil {
		log.Errorw("[ChatService] 保存问答记录失败", "user", username, "error", err)
		metrics.PersistFailures.Inc()
	}
	return result, nil
}
