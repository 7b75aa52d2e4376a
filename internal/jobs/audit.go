// Package jobs управляет фоновыми задачами (cron).
// audit.go сверяет агрегат ауры каждого пользователя с журналом.
package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/features/achievements"
)

// Auditor проверяет инвариант агрегата: аура пользователя равна сумме
// действующих оценок журнала, бонусов достижений и очков значков.
// Аудит только читает и логирует — расхождение чинится руками.
type Auditor struct {
	db *pgxpool.Pool
}

// NewAuditor создаёт аудитор агрегатов.
func NewAuditor(db *pgxpool.Pool) *Auditor {
	return &Auditor{db: db}
}

// Run сверяет всех пользователей и возвращает число расхождений.
func (a *Auditor) Run(ctx context.Context) (int, error) {
	bonusByKey := make(map[string]int64)
	for _, def := range achievements.Catalog() {
		bonusByKey[def.Key] = def.Bonus
	}

	rows, err := a.db.Query(ctx, `
		SELECT u.username,
		       u.aura_total,
		       u.badge_points,
		       COALESCE((SELECT SUM(COALESCE(a.score_corrected, a.score_original))
		                 FROM actions a WHERE a.username = u.username), 0),
		       COALESCE((SELECT ARRAY_AGG(au.achievement_key)
		                 FROM achievement_unlocks au WHERE au.username = u.username), '{}')
		FROM users u
	`)
	if err != nil {
		return 0, fmt.Errorf("ошибка запроса аудита: %w", err)
	}
	defer rows.Close()

	mismatches := 0
	for rows.Next() {
		var (
			username     string
			auraTotal    int64
			badgePoints  int64
			ledgerSum    int64
			unlockedKeys []string
		)
		if err := rows.Scan(&username, &auraTotal, &badgePoints, &ledgerSum, &unlockedKeys); err != nil {
			return mismatches, fmt.Errorf("ошибка сканирования строки аудита: %w", err)
		}

		var bonusSum int64
		for _, key := range unlockedKeys {
			bonusSum += bonusByKey[key]
		}

		expected := ledgerSum + bonusSum + badgePoints
		if expected != auraTotal {
			mismatches++
			log.WithFields(log.Fields{
				"username":     username,
				"aura_total":   auraTotal,
				"expected":     expected,
				"ledger_sum":   ledgerSum,
				"bonus_sum":    bonusSum,
				"badge_points": badgePoints,
			}).Error("[AUDIT] Расхождение агрегата ауры")
		}
	}
	return mismatches, rows.Err()
}
