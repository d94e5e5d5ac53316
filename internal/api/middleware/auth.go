package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/pkg/credential"
	"github.com/qs3c/cafe_sub_server/internal/pkg/jwt"
	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
)

const (
	SessionKey = "session"
)

// bearerToken 从 Authorization 头取令牌，WebSocket 握手无法带头时退回 token 查询参数
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, true
		}
		return "", false
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return "", false
	}
	return tokenString, true
}

// resolve 默认只解码声明，开启 verify_signature 时校验签名和过期时间
func resolve(cfg config.JWTConfig, token string) (credential.Identity, error) {
	if cfg.VerifySignature {
		claims, err := jwt.ParseToken(token, cfg.Secret)
		if err != nil {
			return credential.Anonymous(), err
		}
		return claims.Identity(), nil
	}
	return credential.Resolve(token)
}

// Auth 认证中间件，要求可解析的非匿名身份
func Auth(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		identity, err := resolve(cfg, token)
		if err != nil || identity.IsAnonymous() {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		c.Set(SessionKey, credential.Session{Identity: identity, Token: token})
		c.Next()
	}
}

// OptionalAuth 可选认证中间件，解析失败按匿名处理
func OptionalAuth(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := credential.Session{Identity: credential.Anonymous()}
		if token, ok := bearerToken(c); ok {
			if identity, err := resolve(cfg, token); err == nil {
				session = credential.Session{Identity: identity, Token: token}
			}
		}
		c.Set(SessionKey, session)
		c.Next()
	}
}

// RequireRole 限制角色，需放在 Auth 之后
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if !session.Identity.HasRole(roles...) {
			response.PermissionError(c, "无权访问")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff 门店员工
func RequireStaff() gin.HandlerFunc {
	return RequireRole(credential.RoleStaff, credential.RoleBarista)
}

// RequireCustomer 客户，未带角色声明的令牌也按客户处理
func RequireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetSession(c).CustomerID(); !ok {
			response.PermissionError(c, "仅限客户使用")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetSession 从上下文获取会话，未认证时返回匿名会话
func GetSession(c *gin.Context) credential.Session {
	v, exists := c.Get(SessionKey)
	if !exists {
		return credential.Session{Identity: credential.Anonymous()}
	}
	session, ok := v.(credential.Session)
	if !ok {
		return credential.Session{Identity: credential.Anonymous()}
	}
	return session
}
