// Package server — middleware.go содержит middleware аутентификации,
// ограничения частоты запросов и логирования.
package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/common"
)

// Ключи контекста gin, заполняются middleware аутентификации.
const (
	ctxKeyToken    = "session_token"
	ctxKeyUsername = "session_username"
	ctxKeyRole     = "session_role"
)

// SessionResolver превращает токен сессии в пользователя.
// Реализуется сервисом пользователей; так пакет server не зависит от features.
type SessionResolver func(ctx context.Context, token string) (username, role string, err error)

// SessionToken возвращает токен текущей сессии.
func SessionToken(c *gin.Context) string {
	return c.GetString(ctxKeyToken)
}

// CurrentUsername возвращает имя аутентифицированного пользователя.
func CurrentUsername(c *gin.Context) string {
	return c.GetString(ctxKeyUsername)
}

// CurrentRole возвращает роль аутентифицированного пользователя.
func CurrentRole(c *gin.Context) string {
	return c.GetString(ctxKeyRole)
}

// Auth проверяет заголовок Authorization: Bearer <token> и кладёт
// имя и роль пользователя в контекст запроса.
func Auth(resolve SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			RespondError(c, http.StatusUnauthorized, "unauthorized", common.ErrSessionExpired)
			c.Abort()
			return
		}

		username, role, err := resolve(c.Request.Context(), token)
		if err != nil {
			RespondError(c, http.StatusUnauthorized, "unauthorized", common.ErrSessionExpired)
			c.Abort()
			return
		}

		c.Set(ctxKeyToken, token)
		c.Set(ctxKeyUsername, username)
		c.Set(ctxKeyRole, role)
		c.Next()
	}
}

// AdminOnly пропускает только администраторов. Вешается после Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentRole(c) != "admin" {
			RespondError(c, http.StatusForbidden, "forbidden", common.ErrNotAdmin)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimit ограничивает частоту запросов по IP клиента.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			RespondError(c, http.StatusTooManyRequests, "rate_limited",
				fmt.Errorf("слишком много запросов, попробуйте позже"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestLogger логирует каждый запрос со статусом и длительностью.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}).Info("HTTP запрос")
	}
}

// Recovery перехватывает паники в обработчиках и возвращает 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"panic":     fmt.Sprintf("%v", r),
					"stack":     string(debug.Stack()),
				}).Error("ПАНИКА в обработчике — восстановлено")
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
