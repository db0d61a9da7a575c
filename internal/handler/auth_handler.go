// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"launchgpt-go/internal/middleware"
	"launchgpt-go/internal/service"
	"launchgpt-go/pkg/log"
)

// CookieConfig 描述会话 cookie 的属性。
type CookieConfig struct {
	Name   string
	MaxAge int // 秒，与令牌有效期一致
	Secure bool
}

// AuthHandler 负责注册、登录与登出。
type AuthHandler struct {
	userService service.UserService
	cookie      CookieConfig
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(userService service.UserService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{userService: userService, cookie: cookie}
}

// SignupRequest 定义了注册 API 的请求体结构。
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup 处理用户注册请求。
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request payload"})
		return
	}

	user, err := h.userService.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrUserExists), errors.Is(err, service.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	case err != nil:
		log.Error("Signup: 注册失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    gin.H{"id": user.ID, "username": user.Username},
	})
}

// LoginRequest 定义了登录 API 的请求体结构。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login 校验凭据并写入会话 cookie。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request payload"})
		return
	}

	tok, user, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
		return
	case err != nil:
		log.Error("Login: 登录失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	h.setCookie(c, tok, h.cookie.MaxAge)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    gin.H{"id": user.ID, "username": user.Username},
	})
}

// Logout 清除会话 cookie。令牌本身是无状态的，不做服务端吊销。
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me 返回当前登录用户。
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		log.Error("Me: 获取用户信息失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user.DTO(), "expiresAt": id.ExpiresAt})
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
