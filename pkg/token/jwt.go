// Package token 提供会话令牌 (JWT) 的签发与解析。
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL 是会话令牌的默认有效期。
const DefaultTTL = 24 * time.Hour

var (
	// ErrEmptySecret 表示没有配置签名密钥。
	ErrEmptySecret = errors.New("token: signing secret is empty")
	// ErrEmptySubject 表示签发时没有提供主体。
	ErrEmptySubject = errors.New("token: subject is empty")
)

// Identity 是从有效令牌中解析出的身份。
type Identity struct {
	UserID    uint      `json:"id"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Subject 返回令牌 sub 声明中的字符串形式。
func (i Identity) Subject() string {
	return strconv.FormatUint(uint64(i.UserID), 10)
}

// CustomClaims 定义了令牌中携带的数据。
// sub 存放用户 ID，Username 仅用于展示。
type CustomClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Manager 负责令牌的签发与校验。它是无状态的，可被多个 goroutine 共享。
type Manager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// Option 用于定制 Manager。
type Option func(*Manager)

// WithClock 替换时钟，主要用于测试。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager 创建一个新的 Manager。ttl <= 0 时使用 DefaultTTL。
func NewManager(secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{secretKey: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL 返回令牌有效期，会话 cookie 的 Max-Age 与之保持一致。
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue 为给定用户签发一个 HS256 令牌。
func (m *Manager) Issue(userID uint, username string) (string, error) {
	if userID == 0 {
		return "", ErrEmptySubject
	}
	now := m.now()
	claims := CustomClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// Resolve 校验令牌并返回身份。缺失、格式错误、被篡改、算法不符或已过期的令牌
// 都只返回 ok == false。
func (m *Manager) Resolve(tokenString string) (Identity, bool) {
	if tokenString == "" {
		return Identity{}, false
	}
	claims, err := m.verify(tokenString)
	if err != nil {
		return Identity{}, false
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return Identity{}, false
	}
	ident := Identity{UserID: uint(id), Username: claims.Username}
	if claims.IssuedAt != nil {
		ident.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		ident.ExpiresAt = claims.ExpiresAt.Time
	}
	return ident, true
}

// Inspect 与 Resolve 相同，但返回具体的失败原因，供命令行排查使用。
func (m *Manager) Inspect(tokenString string) (*CustomClaims, error) {
	return m.verify(tokenString)
}

func (m *Manager) verify(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 只接受 HMAC 签名
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
