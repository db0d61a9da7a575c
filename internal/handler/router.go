package handler

import (
	"github.com/gin-gonic/gin"

	"launchgpt-go/internal/middleware"
	"launchgpt-go/pkg/token"
)

// RouterConfig 汇集路由引擎所需的全部依赖。
type RouterConfig struct {
	Tokens     *token.Manager
	CookieName string
	Origins    []string
	Auth       *AuthHandler
	Chat       *ChatHandler
	Search     *SearchHandler
}

// NewRouter 创建路由引擎并注册 /api 下的全部路由。
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New() // 不带默认中间件
	r.Use(
		middleware.RequestLogger(),
		gin.Recovery(),
		middleware.CORS(cfg.Origins),
		middleware.SessionGate(cfg.Tokens, cfg.CookieName),
	)

	api := r.Group("/api")
	{
		// Auth 路由组
		auth := api.Group("/auth")
		{
			auth.POST("/signup", cfg.Auth.Signup)
			auth.POST("/login", cfg.Auth.Login)
			auth.POST("/logout", cfg.Auth.Logout)
			auth.GET("/me", cfg.Auth.Me)
		}

		// Chat 路由组，登录检查在各个 handler 中完成
		chat := api.Group("/chat")
		{
			chat.GET("/ping", cfg.Chat.Ping)
			chat.POST("/send", cfg.Chat.Send)
			chat.GET("/history", cfg.Chat.History)
			chat.DELETE("/clear", cfg.Chat.Clear)
			chat.GET("/ws", cfg.Chat.Handle)
			chat.GET("/:id/transcript", cfg.Chat.Transcript)
			if cfg.Search != nil {
				chat.GET("/search", cfg.Search.Search)
			}
		}
	}
	return r
}
