// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"resume-chat-go/internal/model"

	"gorm.io/gorm"
)

// UserRepository 接口定义了用户数据的持久化操作。
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, userID uint) (*model.User, error)
	FindWithPagination(ctx context.Context, offset, limit int) ([]model.User, int64, error)
	RecordLoginFailure(ctx context.Context, userID uint) error
	SetLoggedIn(ctx context.Context, userID uint, loggedIn bool) error
	UpdateMaxMessages(ctx context.Context, userID uint, maxMessages int) error
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create 在数据库中创建一个新的用户记录。
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByUsername 根据用户名精确查找一个用户。
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 根据用户 ID 查找一个用户。
func (r *userRepository) FindByID(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindWithPagination 分页检索用户记录，返回用户列表与总记录数。
func (r *userRepository) FindWithPagination(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("id asc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// RecordLoginFailure 原子地将失败登录次数加一。
func (r *userRepository) RecordLoginFailure(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("failed_attempts", gorm.Expr("failed_attempts + ?", 1)).Error
}

// SetLoggedIn 更新登录标志；登录成功时同时清零失败次数。
func (r *userRepository) SetLoggedIn(ctx context.Context, userID uint, loggedIn bool) error {
	updates := map[string]interface{}{"logged_in": loggedIn}
	if loggedIn {
		updates["failed_attempts"] = 0
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error
}

// UpdateMaxMessages 修改用户的提问上限。
func (r *userRepository) UpdateMaxMessages(ctx context.Context, userID uint, maxMessages int) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("max_messages", maxMessages)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
