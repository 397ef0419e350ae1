package repository

import (
	"context"
	"resume-chat-go/internal/model"
	"time"

	"gorm.io/gorm"
)

// TurnFilter 是查询历史问答时的可选过滤条件。
type TurnFilter struct {
	UserID    *uint
	StartTime *time.Time
	EndTime   *time.Time
}

// ConversationRepository 定义了 ConversationHistory 表的操作接口。
// 只允许追加，不提供更新与删除。
type ConversationRepository interface {
	Append(ctx context.Context, turn *model.ConversationTurn) error
	CountByUserID(ctx context.Context, userID uint) (int64, error)
	FindByUserID(ctx context.Context, userID uint) ([]model.ConversationTurn, error)
	Find(ctx context.Context, filter TurnFilter) ([]model.ConversationTurn, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Append 以单条 INSERT 写入一轮问答。
func (r *conversationRepository) Append(ctx context.Context, turn *model.ConversationTurn) error {
	return r.db.WithContext(ctx).Omit("User").Create(turn).Error
}

// CountByUserID 实时统计用户的历史提问数，不做缓存。
func (r *conversationRepository) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ConversationTurn{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// FindByUserID 按写入顺序返回用户的全部问答。
func (r *conversationRepository) FindByUserID(ctx context.Context, userID uint) ([]model.ConversationTurn, error) {
	var turns []model.ConversationTurn
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&turns).Error
	return turns, err
}

// Find 按过滤条件查询问答记录，结果按写入顺序排列。
func (r *conversationRepository) Find(ctx context.Context, filter TurnFilter) ([]model.ConversationTurn, error) {
	var turns []model.ConversationTurn
	q := r.db.WithContext(ctx).Model(&model.ConversationTurn{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.StartTime != nil {
		q = q.Where("datetime >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		q = q.Where("datetime <= ?", *filter.EndTime)
	}
	err := q.Order("id asc").Find(&turns).Error
	return turns, err
}
