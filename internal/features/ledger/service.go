// Package ledger — service.go содержит бизнес-логику записи, исправления
// и удаления действий.
package ledger

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/common"
	"serotonyl.ru/aura-backend/internal/features/achievements"
	"serotonyl.ru/aura-backend/internal/features/oracle"
)

// Store — операции с хранилищем, нужные сервису журнала.
type Store interface {
	Record(ctx context.Context, e *Entry) (int64, string, error)
	Correct(ctx context.Context, id, newScore int64, note string) (*Entry, int64, string, error)
	Delete(ctx context.Context, id int64) (found bool, username string, err error)
	HistoryByUser(ctx context.Context, username string) ([]*Entry, error)
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	CorrectedExamples(ctx context.Context, username string) ([]oracle.Example, error)
	Counts(ctx context.Context) (total, corrected int64, err error)
}

// ScoreOracle оценивает текст действия. Никогда не падает: при
// недоступности модели внутри срабатывает эвристика.
type ScoreOracle interface {
	Evaluate(ctx context.Context, action string, examples []oracle.Example) oracle.Evaluation
}

// AchievementEvaluator запускает оценку достижений после мутаций журнала.
type AchievementEvaluator interface {
	Evaluate(ctx context.Context, username string) ([]achievements.Definition, error)
}

// MutationResult — итог мутации журнала: запись, новое состояние агрегата
// и достижения, разблокированные этим событием.
type MutationResult struct {
	Entry         *Entry
	AuraTotal     int64
	League        string
	NewlyUnlocked []achievements.Definition
}

// Service реализует сценарии работы с журналом действий.
type Service struct {
	store        Store
	oracle       ScoreOracle
	achievements AchievementEvaluator

	adminRecentLimit int
}

// NewService создаёт сервис журнала.
func NewService(store Store, scoreOracle ScoreOracle, evaluator AchievementEvaluator) *Service {
	return &Service{
		store:            store,
		oracle:           scoreOracle,
		achievements:     evaluator,
		adminRecentLimit: 50,
	}
}

// Submit записывает новое действие: оракул оценивает текст с учётом
// прошлых исправлений, оценка применяется к ауре, затем оцениваются
// достижения.
func (s *Service) Submit(ctx context.Context, username, action string) (*MutationResult, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, common.ErrEmptyAction
	}

	examples, err := s.store.CorrectedExamples(ctx, username)
	if err != nil {
		return nil, err
	}

	ev := s.oracle.Evaluate(ctx, action, examples)

	entry := &Entry{
		Username:      username,
		Action:        action,
		ScoreOriginal: ev.Score,
		Rationale:     ev.Rationale,
	}
	newTotal, league, err := s.store.Record(ctx, entry)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"username": username,
		"entry_id": entry.ID,
		"score":    ev.Score,
		"league":   league,
	}).Info("Записано новое действие")

	newly, err := s.achievements.Evaluate(ctx, username)
	if err != nil {
		// Действие уже записано — ошибку оценки достижений логируем,
		// но запись не откатываем. Следующее событие доразблокирует.
		log.WithError(err).WithField("username", username).Error("Ошибка оценки достижений")
	}

	return &MutationResult{
		Entry:         entry,
		AuraTotal:     newTotal,
		League:        league,
		NewlyUnlocked: newly,
	}, nil
}

// Correct выставляет исправленную оценку записи. Дельта к ауре равна
// разнице между новой и старой действующей оценкой; после исправления
// достижения переоцениваются.
func (s *Service) Correct(ctx context.Context, id, newScore int64, note string) (*MutationResult, error) {
	entry, newTotal, league, err := s.store.Correct(ctx, id, newScore, note)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"entry_id":  id,
		"username":  entry.Username,
		"new_score": newScore,
	}).Info("Оценка действия исправлена администратором")

	newly, err := s.achievements.Evaluate(ctx, entry.Username)
	if err != nil {
		log.WithError(err).WithField("username", entry.Username).Error("Ошибка оценки достижений")
	}

	return &MutationResult{
		Entry:         entry,
		AuraTotal:     newTotal,
		League:        league,
		NewlyUnlocked: newly,
	}, nil
}

// Delete удаляет запись и вычитает её действующую оценку из ауры.
// Разблокированные достижения не отзываются. Неизвестный id — тихий no-op.
func (s *Service) Delete(ctx context.Context, id int64) error {
	found, username, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		log.WithField("entry_id", id).Warn("Удаление несуществующей записи — пропущено")
		return nil
	}

	log.WithFields(log.Fields{
		"entry_id": id,
		"username": username,
	}).Info("Запись удалена администратором")
	return nil
}

// History возвращает журнал пользователя в порядке создания.
func (s *Service) History(ctx context.Context, username string) ([]*Entry, error) {
	return s.store.HistoryByUser(ctx, username)
}

// Recent возвращает последние действия всех пользователей для админки.
func (s *Service) Recent(ctx context.Context) ([]*Entry, error) {
	return s.store.Recent(ctx, s.adminRecentLimit)
}

// Stats возвращает счётчики журнала для статистики админки.
func (s *Service) Stats(ctx context.Context) (total, corrected int64, err error) {
	return s.store.Counts(ctx)
}
