package service

import "errors"

// 业务错误，由 handler 映射为 HTTP 状态码。
var (
	ErrUserExists      = errors.New("User already exists")
	ErrUserNotFound    = errors.New("User not found")
	ErrInvalidPassword = errors.New("Invalid password")
	ErrMissingFields   = errors.New("All fields are required")
	ErrEmptyMessage    = errors.New("Message cannot be empty")
	ErrChatNotFound    = errors.New("Chat not found")
	ErrEmptyQuery      = errors.New("Search query cannot be empty")
)

// ProviderError 包装 AI 接口调用失败，原始错误只写日志，不返回给客户端。
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "ai provider request failed: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }
