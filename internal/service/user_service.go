// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"launchgpt-go/internal/model"
	"launchgpt-go/internal/repository"
	"launchgpt-go/pkg/hash"
	"launchgpt-go/pkg/log"
	"launchgpt-go/pkg/token"
)

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Signup(ctx context.Context, username, email, password string) (*model.User, error)
	// Login 校验凭据并签发会话令牌。
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	GetProfile(ctx context.Context, userID uint) (*model.User, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo     repository.UserRepository
	tokenManager *token.Manager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, tokenManager *token.Manager) UserService {
	return &userService{
		userRepo:     userRepo,
		tokenManager: tokenManager,
	}
}

// Signup 处理用户注册：邮箱唯一，密码以 bcrypt 哈希保存。
func (s *userService) Signup(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	// 1. 检查邮箱是否已被注册
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	// 3. 保存用户
	newUser := &model.User{
		Username: username,
		Email:    email,
		Password: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		// 并发注册时唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	log.Infow("用户注册成功", "userId", newUser.ID)
	return newUser, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", nil, ErrMissingFields
	}

	// 1. 查找用户
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, fmt.Errorf("查询用户失败: %w", err)
	}

	// 2. 验证密码
	if !hash.CheckPasswordHash(password, user.Password) {
		return "", nil, ErrInvalidPassword
	}

	// 3. 签发会话令牌
	tok, err := s.tokenManager.Issue(user.ID, user.Username)
	if err != nil {
		return "", nil, fmt.Errorf("签发令牌失败: %w", err)
	}
	return tok, user, nil
}

// GetProfile 获取用户信息。
func (s *userService) GetProfile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
