// Package badges — service.go содержит логику импорта и оценки значков.
package badges

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/features/achievements"
	"serotonyl.ru/aura-backend/internal/features/oracle"
)

// Store — операции с хранилищем, нужные сервису значков.
type Store interface {
	ExistingSourceIDs(ctx context.Context, username string) (map[string]bool, error)
	InsertBatch(ctx context.Context, username string, badges []ImportedBadge) (inserted int, delta int64, err error)
	ListByUser(ctx context.Context, username string) ([]ImportedBadge, error)
}

// BatchOracle оценивает пачку текстов. Никогда не падает.
type BatchOracle interface {
	EvaluateBatch(ctx context.Context, actions []string, examples []oracle.Example) []oracle.Evaluation
}

// AchievementEvaluator запускает оценку достижений после импорта.
type AchievementEvaluator interface {
	Evaluate(ctx context.Context, username string) ([]achievements.Definition, error)
}

// ImportReport — итог импорта значков.
type ImportReport struct {
	Fetched       int
	Imported      int
	AuraDelta     int64
	NewlyUnlocked []achievements.Definition
}

// Service реализует импорт значков.
type Service struct {
	store        Store
	provider     Provider
	oracle       BatchOracle
	achievements AchievementEvaluator
	batchSize    int
}

// NewService создаёт сервис значков. batchSize ограничивает размер
// одного запроса к оракулу.
func NewService(store Store, provider Provider, batchOracle BatchOracle, evaluator AchievementEvaluator, batchSize int) *Service {
	return &Service{
		store:        store,
		provider:     provider,
		oracle:       batchOracle,
		achievements: evaluator,
		batchSize:    batchSize,
	}
}

// Import загружает значки пользователя у провайдера, оценивает новые
// через оракул и начисляет очки. Повторный импорт — чистый diff:
// уже импортированные значки не переоцениваются и не начисляются заново.
func (s *Service) Import(ctx context.Context, username string) (*ImportReport, error) {
	fetched, err := s.provider.Fetch(ctx, username)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ExistingSourceIDs(ctx, username)
	if err != nil {
		return nil, err
	}

	var fresh []ProviderBadge
	seen := make(map[string]bool, len(fetched))
	for _, b := range fetched {
		// Дедупликация и против БД, и внутри самого ответа провайдера.
		if existing[b.SourceID] || seen[b.SourceID] {
			continue
		}
		seen[b.SourceID] = true
		fresh = append(fresh, b)
	}

	report := &ImportReport{Fetched: len(fetched)}
	for start := 0; start < len(fresh); start += s.batchSize {
		end := min(start+s.batchSize, len(fresh))
		batch := fresh[start:end]

		texts := make([]string, len(batch))
		for i, b := range batch {
			texts[i] = fmt.Sprintf("%s: %s", b.Title, b.Description)
		}
		evs := s.oracle.EvaluateBatch(ctx, texts, nil)

		toInsert := make([]ImportedBadge, len(batch))
		for i, b := range batch {
			toInsert[i] = ImportedBadge{
				Username:  username,
				SourceID:  b.SourceID,
				Title:     b.Title,
				Score:     evs[i].Score,
				Rationale: evs[i].Rationale,
			}
		}

		inserted, delta, err := s.store.InsertBatch(ctx, username, toInsert)
		if err != nil {
			return nil, err
		}
		report.Imported += inserted
		report.AuraDelta += delta
	}

	if report.Imported > 0 {
		log.WithFields(log.Fields{
			"username": username,
			"imported": report.Imported,
			"delta":    report.AuraDelta,
		}).Info("Импортированы значки")

		newly, err := s.achievements.Evaluate(ctx, username)
		if err != nil {
			log.WithError(err).WithField("username", username).Error("Ошибка оценки достижений")
		}
		report.NewlyUnlocked = newly
	}

	return report, nil
}

// List возвращает импортированные значки пользователя.
func (s *Service) List(ctx context.Context, username string) ([]ImportedBadge, error) {
	return s.store.ListByUser(ctx, username)
}
