// Package users — handlers.go содержит HTTP-обработчики регистрации,
// входа и профилей.
package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/common"
	"serotonyl.ru/aura-backend/internal/server"
)

// Handlers — HTTP-обработчики пользователей.
type Handlers struct {
	service *Service
}

// NewHandlers создаёт обработчики пользователей.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// profileView — публичное представление пользователя (без хеша пароля).
type profileView struct {
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	AuraTotal   int64  `json:"aura_total"`
	League      string `json:"league"`
	BadgePoints int64  `json:"badge_points"`
	CreatedAt   string `json:"created_at"`
}

func toProfileView(u *User, includeEmail bool) profileView {
	v := profileView{
		Username:    u.Username,
		Role:        u.Role,
		AuraTotal:   u.AuraTotal,
		League:      u.League,
		BadgePoints: u.BadgePoints,
		CreatedAt:   common.FormatDateTime(u.CreatedAt),
	}
	if includeEmail {
		v.Email = u.Email
	}
	return v
}

// Register обрабатывает POST /api/auth/register.
func (h *Handlers) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	u, err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUserExists):
			server.RespondError(c, http.StatusConflict, "user_exists", err)
		case errors.Is(err, common.ErrWrongCredentials):
			server.RespondError(c, http.StatusBadRequest, "bad_request", err)
		default:
			log.WithError(err).Error("Ошибка регистрации")
			server.RespondError(c, http.StatusInternalServerError, "internal", err)
		}
		return
	}

	server.RespondCreated(c, toProfileView(u, true))
}

// Login обрабатывает POST /api/auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	token, u, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTooManyAttempts):
			server.RespondError(c, http.StatusTooManyRequests, "too_many_attempts", err)
		case errors.Is(err, common.ErrWrongCredentials):
			server.RespondError(c, http.StatusUnauthorized, "wrong_credentials", err)
		default:
			log.WithError(err).Error("Ошибка входа")
			server.RespondError(c, http.StatusInternalServerError, "internal", err)
		}
		return
	}

	server.RespondOK(c, gin.H{
		"token": token,
		"user":  toProfileView(u, true),
	})
}

// Logout обрабатывает POST /api/auth/logout.
func (h *Handlers) Logout(c *gin.Context) {
	token := server.SessionToken(c)
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		log.WithError(err).Error("Ошибка выхода")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	server.RespondOK(c, gin.H{"status": "ok"})
}

// Profile обрабатывает GET /api/users/:username — публичный профиль.
func (h *Handlers) Profile(c *gin.Context) {
	u, err := h.service.Profile(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			server.RespondError(c, http.StatusNotFound, "user_not_found", err)
			return
		}
		log.WithError(err).Error("Ошибка получения профиля")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	server.RespondOK(c, toProfileView(u, false))
}

// Ranking обрабатывает GET /api/ranking — рейтинг по ауре, сгруппированный
// по лигам от высшей к низшей. Позиции сквозные: лига определяется порогом
// ауры, поэтому сортировка по ауре даёт непрерывные группы лиг.
func (h *Handlers) Ranking(c *gin.Context) {
	list, err := h.service.Ranking(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Ошибка получения рейтинга")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	type rankedView struct {
		Position  int    `json:"position"`
		Username  string `json:"username"`
		AuraTotal int64  `json:"aura_total"`
	}

	groups := make([]gin.H, 0, len(Leagues()))
	idx, position := 0, 0
	for _, league := range Leagues() {
		var members []rankedView
		for idx < len(list) && list[idx].League == league {
			position++
			members = append(members, rankedView{
				Position:  position,
				Username:  list[idx].Username,
				AuraTotal: list[idx].AuraTotal,
			})
			idx++
		}
		if len(members) == 0 {
			continue
		}
		groups = append(groups, gin.H{"league": league, "users": members})
	}
	server.RespondOK(c, gin.H{"leagues": groups, "total": len(list)})
}

// RemoveUser обрабатывает DELETE /api/admin/users/:username.
func (h *Handlers) RemoveUser(c *gin.Context) {
	username := c.Param("username")
	if err := h.service.Remove(c.Request.Context(), username); err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			server.RespondError(c, http.StatusNotFound, "user_not_found", err)
			return
		}
		log.WithError(err).Error("Ошибка удаления пользователя")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	server.RespondOK(c, gin.H{"status": "deleted"})
}
