// Package badges — handlers.go содержит HTTP-обработчики значков.
package badges

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/common"
	"serotonyl.ru/aura-backend/internal/server"
)

// Handlers — HTTP-обработчики значков.
type Handlers struct {
	service *Service
}

// NewHandlers создаёт обработчики значков.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// Import обрабатывает POST /api/badges/import — импорт значков текущего
// пользователя из внешнего провайдера.
func (h *Handlers) Import(c *gin.Context) {
	report, err := h.service.Import(c.Request.Context(), server.CurrentUsername(c))
	if err != nil {
		if errors.Is(err, common.ErrBadgeProviderUnavailable) {
			server.RespondError(c, http.StatusBadGateway, "provider_unavailable", err)
			return
		}
		log.WithError(err).Error("Ошибка импорта значков")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	unlocked := make([]gin.H, 0, len(report.NewlyUnlocked))
	for _, def := range report.NewlyUnlocked {
		unlocked = append(unlocked, gin.H{
			"key":   def.Key,
			"name":  def.Name,
			"bonus": def.Bonus,
		})
	}
	server.RespondOK(c, gin.H{
		"fetched":          report.Fetched,
		"imported":         report.Imported,
		"aura_delta":       report.AuraDelta,
		"new_achievements": unlocked,
	})
}

// List обрабатывает GET /api/badges — значки текущего пользователя.
func (h *Handlers) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), server.CurrentUsername(c))
	if err != nil {
		log.WithError(err).Error("Ошибка получения значков")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	type badgeView struct {
		SourceID   string `json:"source_id"`
		Title      string `json:"title"`
		Score      int64  `json:"score"`
		Rationale  string `json:"rationale"`
		ImportedAt string `json:"imported_at"`
	}
	result := make([]badgeView, 0, len(list))
	for _, b := range list {
		result = append(result, badgeView{
			SourceID:   b.SourceID,
			Title:      b.Title,
			Score:      b.Score,
			Rationale:  b.Rationale,
			ImportedAt: common.FormatDateTime(b.ImportedAt),
		})
	}
	server.RespondOK(c, gin.H{"badges": result})
}
