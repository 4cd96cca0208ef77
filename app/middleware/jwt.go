package middleware

import (
	"bili-downloader/app/auth"
	"bili-downloader/app/config"
	"bili-downloader/app/logger"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 上下文中保存的认证信息
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextLogger   = "logger"
)

// BearerToken 读取 Authorization: Bearer {token}
func BearerToken(c *gin.Context) (string, bool) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// JWTAuth 校验管理员令牌，并把带用户名和请求 ID 的日志记录器放入上下文
func JWTAuth(cfg *config.Config, log *logger.Logger) gin.HandlerFunc {
	jwtService := auth.NewJWTService(cfg)

	return func(c *gin.Context) {
		reqLog := log.With(zap.String("request_id", c.GetString("request_id")))

		token, ok := BearerToken(c)
		if !ok {
			reqLog.Debug("缺少认证令牌", zap.String("path", c.Request.URL.Path))
			abort(c, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			reqLog.Warn("认证令牌校验失败", zap.String("path", c.Request.URL.Path), zap.Error(err))
			abort(c, "令牌无效: "+err.Error())
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username())
		c.Set(ContextLogger, reqLog.With(zap.String("username", claims.Username())))
		c.Next()
	}
}

// Logger 返回请求范围的日志记录器，未经过 JWTAuth 时返回 fallback
func Logger(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if v, ok := c.Get(ContextLogger); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return fallback
}

func abort(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": message,
		"data":    nil,
	})
}
