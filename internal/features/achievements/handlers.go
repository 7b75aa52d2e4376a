// Package achievements — handlers.go содержит HTTP-обработчики каталога.
package achievements

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/server"
)

// Handlers — HTTP-обработчики достижений.
type Handlers struct {
	service *Service
}

// NewHandlers создаёт обработчики достижений.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// Catalog обрабатывает GET /api/achievements — каталог достижений
// с отметками о разблокировке для текущего пользователя.
func (h *Handlers) Catalog(c *gin.Context) {
	username := server.CurrentUsername(c)

	defs, unlocked, err := h.service.UserCatalog(c.Request.Context(), username)
	if err != nil {
		log.WithError(err).Error("Ошибка получения каталога достижений")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	type achievementView struct {
		Key         string `json:"key"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Bonus       int64  `json:"bonus"`
		Unlocked    bool   `json:"unlocked"`
	}
	result := make([]achievementView, 0, len(defs))
	for _, def := range defs {
		result = append(result, achievementView{
			Key:         def.Key,
			Name:        def.Name,
			Description: def.Description,
			Bonus:       def.Bonus,
			Unlocked:    unlocked[def.Key],
		})
	}
	server.RespondOK(c, gin.H{"achievements": result})
}
