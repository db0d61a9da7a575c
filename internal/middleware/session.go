// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"launchgpt-go/pkg/token"
)

const identityKey = "identity"

// SessionGate 在每个请求上解析会话 cookie（或 Bearer 头），有效时将身份绑定到上下文。
// 它从不拦截请求，是否需要登录由各个 handler 自行决定。
func SessionGate(tm *token.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := sessionToken(c, cookieName); raw != "" {
			if id, ok := tm.Resolve(raw); ok {
				c.Set(identityKey, id)
			}
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	const bearerPrefix = "Bearer "
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimPrefix(h, bearerPrefix)
	}
	return ""
}

// CurrentIdentity 返回当前请求的身份。
func CurrentIdentity(c *gin.Context) (token.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return token.Identity{}, false
	}
	id, ok := v.(token.Identity)
	return id, ok
}

// RequireIdentity 返回当前身份；未登录时写入 401 并中止后续处理。
func RequireIdentity(c *gin.Context) (token.Identity, bool) {
	id, ok := CurrentIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
	}
	return id, ok
}
