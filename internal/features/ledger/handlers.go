// Package ledger — handlers.go содержит HTTP-обработчики журнала действий.
package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/common"
	"serotonyl.ru/aura-backend/internal/server"
)

// Handlers — HTTP-обработчики журнала.
type Handlers struct {
	service *Service
}

// NewHandlers создаёт обработчики журнала.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// entryView — представление записи журнала в API.
type entryView struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	Action         string  `json:"action"`
	ScoreOriginal  int64   `json:"score_original"`
	ScoreCorrected *int64  `json:"score_corrected,omitempty"`
	EffectiveScore int64   `json:"effective_score"`
	CorrectionNote *string `json:"correction_note,omitempty"`
	Rationale      string  `json:"rationale"`
	CreatedAt      string  `json:"created_at"`
}

func toEntryView(e *Entry) entryView {
	return entryView{
		ID:             e.ID,
		Username:       e.Username,
		Action:         e.Action,
		ScoreOriginal:  e.ScoreOriginal,
		ScoreCorrected: e.ScoreCorrected,
		EffectiveScore: e.EffectiveScore(),
		CorrectionNote: e.CorrectionNote,
		Rationale:      e.Rationale,
		CreatedAt:      common.FormatDateTime(e.CreatedAt),
	}
}

func toEntryViews(entries []*Entry) []entryView {
	result := make([]entryView, 0, len(entries))
	for _, e := range entries {
		result = append(result, toEntryView(e))
	}
	return result
}

// mutationResponse собирает ответ на мутацию журнала.
func mutationResponse(res *MutationResult) gin.H {
	unlocked := make([]gin.H, 0, len(res.NewlyUnlocked))
	for _, def := range res.NewlyUnlocked {
		unlocked = append(unlocked, gin.H{
			"key":   def.Key,
			"name":  def.Name,
			"bonus": def.Bonus,
		})
	}
	return gin.H{
		"entry":            toEntryView(res.Entry),
		"aura_total":       res.AuraTotal,
		"aura_formatted":   common.FormatAuraAmount(res.AuraTotal),
		"league":           res.League,
		"new_achievements": unlocked,
	}
}

// Submit обрабатывает POST /api/actions — запись нового действия.
func (h *Handlers) Submit(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.service.Submit(c.Request.Context(), server.CurrentUsername(c), req.Action)
	if err != nil {
		if errors.Is(err, common.ErrEmptyAction) {
			server.RespondError(c, http.StatusBadRequest, "empty_action", err)
			return
		}
		log.WithError(err).Error("Ошибка записи действия")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	server.RespondCreated(c, mutationResponse(res))
}

// History обрабатывает GET /api/history — журнал текущего пользователя
// от новых записей к старым.
func (h *Handlers) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), server.CurrentUsername(c))
	if err != nil {
		log.WithError(err).Error("Ошибка получения истории")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	server.RespondOK(c, gin.H{
		"entries": toEntryViews(entries),
		"total":   len(entries),
	})
}

// Recent обрабатывает GET /api/admin/actions — последние действия всех
// пользователей.
func (h *Handlers) Recent(c *gin.Context) {
	entries, err := h.service.Recent(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Ошибка получения последних действий")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	server.RespondOK(c, gin.H{"entries": toEntryViews(entries)})
}

// Correct обрабатывает POST /api/admin/actions/:id/correct.
func (h *Handlers) Correct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		server.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	// Указатель, а не int64: binding:"required" иначе отвергает
	// легитимное исправление на ноль.
	var req struct {
		Score *int64 `json:"score" binding:"required"`
		Note  string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.service.Correct(c.Request.Context(), id, *req.Score, req.Note)
	if err != nil {
		if errors.Is(err, common.ErrEntryNotFound) {
			server.RespondError(c, http.StatusNotFound, "entry_not_found", err)
			return
		}
		log.WithError(err).Error("Ошибка исправления записи")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	server.RespondOK(c, mutationResponse(res))
}

// Delete обрабатывает DELETE /api/admin/actions/:id.
// Удаление несуществующей записи отвечает успехом (no-op).
func (h *Handlers) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		server.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		log.WithError(err).Error("Ошибка удаления записи")
		server.RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	server.RespondOK(c, gin.H{"status": "deleted"})
}
