// Package oracle оценивает действия пользователей в очках ауры.
// Основной путь — модель Gemini; при её недоступности используется
// запасная эвристика по ключевым словам.
package oracle

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Пределы оценки одного действия. Применяются только к ответам модели;
// эвристика по ключевым словам ограничена самим набором слов.
const (
	ScoreMin = -100
	ScoreMax = 100
)

// Evaluation — результат оценки одного действия.
type Evaluation struct {
	Score     int64  // Очки ауры
	Rationale string // Объяснение оценки
}

// Example — исправленная администратором оценка из журнала.
// Передаётся модели как эталон для обучения в контексте.
type Example struct {
	Action string
	Score  int64
}

// Scorer оценивает действия. Реализации: GeminiScorer и эвристика.
type Scorer interface {
	// Evaluate оценивает одно действие с учётом эталонных примеров.
	Evaluate(ctx context.Context, action string, examples []Example) (Evaluation, error)
	// EvaluateBatch оценивает пачку действий одним запросом.
	EvaluateBatch(ctx context.Context, actions []string, examples []Example) ([]Evaluation, error)
}

// Service — фасад оценки: пробует основной Scorer, при ошибке
// откатывается на эвристику. Никогда не возвращает ошибку наружу —
// запись действия не должна падать из-за недоступности модели.
type Service struct {
	primary Scorer // nil, если API-ключ не задан
}

// NewService создаёт фасад оценки. primary может быть nil.
func NewService(primary Scorer) *Service {
	return &Service{primary: primary}
}

// Evaluate оценивает действие. Сбой модели логируется, затем действие
// оценивается эвристикой.
func (s *Service) Evaluate(ctx context.Context, action string, examples []Example) Evaluation {
	if s.primary != nil {
		ev, err := s.primary.Evaluate(ctx, action, examples)
		if err == nil {
			return ev
		}
		log.WithError(err).Warn("Оракул недоступен, оценка по эвристике")
	}
	return FallbackEvaluate(action)
}

// EvaluateBatch оценивает пачку действий. При сбое модели каждое
// действие оценивается эвристикой по отдельности.
func (s *Service) EvaluateBatch(ctx context.Context, actions []string, examples []Example) []Evaluation {
	if s.primary != nil {
		evs, err := s.primary.EvaluateBatch(ctx, actions, examples)
		if err == nil && len(evs) == len(actions) {
			return evs
		}
		if err != nil {
			log.WithError(err).Warn("Оракул недоступен, пакетная оценка по эвристике")
		} else {
			log.WithFields(log.Fields{
				"want": len(actions),
				"got":  len(evs),
			}).Warn("Оракул вернул неполный пакет, оценка по эвристике")
		}
	}
	result := make([]Evaluation, len(actions))
	for i, action := range actions {
		result[i] = FallbackEvaluate(action)
	}
	return result
}

// clampScore ограничивает оценку модели диапазоном [ScoreMin, ScoreMax].
func clampScore(score int64) int64 {
	if score > ScoreMax {
		return ScoreMax
	}
	if score < ScoreMin {
		return ScoreMin
	}
	return score
}
