package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/qs3c/cafe_sub_server/internal/pkg/response"
)

// CallbackKey 校验银行网关回调的 "Authorization: Apikey <key>"，密钥以 bcrypt 哈希配置。
// 未配置哈希时拒绝所有回调
func CallbackKey(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			response.AuthError(c, "回调未启用")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		fields := strings.Fields(authHeader)
		if len(fields) != 2 || !strings.EqualFold(fields[0], "Apikey") {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(fields[1])); err != nil {
			response.AuthError(c, "回调密钥错误")
			c.Abort()
			return
		}
		c.Next()
	}
}
