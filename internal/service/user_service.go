package service

import (
	"context"
	"errors"
	"fmt"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/pkg/hash"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/token"
	"strings"

	"gorm.io/gorm"
)

// ErrUsernameTaken 表示用户名已被占用。
var ErrUsernameTaken = errors.New("username already exists")

// NewUser 是创建账号时需要的信息。
type NewUser struct {
	Username    string        `json:"username" binding:"required"`
	Password    string        `json:"password" binding:"required,min=6"`
	Name        string        `json:"name" binding:"required"`
	Email       string        `json:"email"`
	Roles       model.RoleSet `json:"roles"`
	MaxMessages int           `json:"maxMessages"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	CreateUser(ctx context.Context, in NewUser) (*model.User, error)
	Login(ctx context.Context, username, password string) (accessToken string, user *model.User, err error)
	Logout(ctx context.Context, tokenString string) error
	GetProfile(ctx context.Context, username string) (*model.User, error)
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	blacklist  repository.TokenBlacklist
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, blacklist repository.TokenBlacklist, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		blacklist:  blacklist,
		jwtManager: jwtManager,
	}
}

// CreateUser 创建新账号，未指定角色时默认为 viewer。
func (s *userService) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, errors.New("username and password are required")
	}
	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	roles := in.Roles
	if len(roles) == 0 {
		roles = model.RoleSet{model.RoleViewer}
	}
	roles, err = model.NewRoleSet(roles...)
	if err != nil {
		return nil, err
	}
	maxMessages := in.MaxMessages
	if maxMessages <= 0 {
		maxMessages = model.DefaultMaxMessages
	}

	user := &model.User{
		Username:     username,
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hashedPassword,
		Roles:        roles,
		MaxMessages:  maxMessages,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Infof("[UserService] 创建用户成功, username: %s, roles: %v", user.Username, []string(user.Roles))
	return user, nil
}

// Login 校验密码并签发 access token。密码错误时累加失败次数。
func (s *userService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !hash.CheckPasswordHash(password, user.PasswordHash) {
		if err := s.userRepo.RecordLoginFailure(ctx, user.ID); err != nil {
			log.Errorf("[UserService] 记录登录失败次数出错, username: %s, err: %v", username, err)
		}
		return "", nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Roles)
	if err != nil {
		return "", nil, err
	}
	if err := s.userRepo.SetLoggedIn(ctx, user.ID, true); err != nil {
		return "", nil, fmt.Errorf("更新登录状态失败: %w", err)
	}
	user.LoggedIn = true
	user.FailedAttempts = 0
	return accessToken, user, nil
}

// GetProfile 根据用户名获取用户详细信息。
func (s *userService) GetProfile(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout 将 token 加入黑名单直到其过期，并清除登录标志。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return err
	}
	if err := s.blacklist.Add(ctx, tokenString, s.jwtManager.RemainingTTL(claims)); err != nil {
		return fmt.Errorf("写入 token 黑名单失败: %w", err)
	}
	return s.userRepo.SetLoggedIn(ctx, claims.UserID, false)
}

func (s *userService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	return s.blacklist.Contains(ctx, tokenString)
}
