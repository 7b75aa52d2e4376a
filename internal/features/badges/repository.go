// Package badges — repository.go выполняет операции с таблицей imported_badges.
package badges

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/aura-backend/internal/features/users"
)

// Repository работает с импортированными значками. Начисление очков
// от значков проходит в одной транзакции с их записью.
type Repository struct {
	db    *pgxpool.Pool
	users *users.Repository
}

// NewRepository создаёт репозиторий значков.
func NewRepository(db *pgxpool.Pool, usersRepo *users.Repository) *Repository {
	return &Repository{db: db, users: usersRepo}
}

// ExistingSourceIDs возвращает source_id уже импортированных значков.
func (r *Repository) ExistingSourceIDs(ctx context.Context, username string) (map[string]bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT source_id FROM imported_badges WHERE username = $1`, username)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения импортированных значков: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования значка: %w", err)
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

// InsertBatch записывает новые значки и применяет сумму их оценок к ауре
// владельца одной транзакцией. Дубликаты по (username, source_id)
// пропускаются и в сумму не попадают.
func (r *Repository) InsertBatch(ctx context.Context, username string, badges []ImportedBadge) (inserted int, delta int64, err error) {
	if len(badges) == 0 {
		return 0, 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range badges {
		tag, err := tx.Exec(ctx, `
			INSERT INTO imported_badges (username, source_id, title, score, rationale)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (username, source_id) DO NOTHING
		`, username, b.SourceID, b.Title, b.Score, b.Rationale)
		if err != nil {
			return 0, 0, fmt.Errorf("ошибка записи значка: %w", err)
		}
		if tag.RowsAffected() == 1 {
			inserted++
			delta += b.Score
		}
	}

	if inserted > 0 {
		if err := r.users.AddBadgePointsTx(ctx, tx, username, delta); err != nil {
			return 0, 0, err
		}
		if _, _, err := r.users.ApplyAuraDeltaTx(ctx, tx, username, delta); err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return inserted, delta, nil
}

// ListByUser возвращает значки пользователя в порядке импорта.
func (r *Repository) ListByUser(ctx context.Context, username string) ([]ImportedBadge, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, username, source_id, title, score, rationale, imported_at
		FROM imported_badges
		WHERE username = $1
		ORDER BY id ASC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения значков: %w", err)
	}
	defer rows.Close()

	var result []ImportedBadge
	for rows.Next() {
		var b ImportedBadge
		if err := rows.Scan(&b.ID, &b.Username, &b.SourceID, &b.Title, &b.Score, &b.Rationale, &b.ImportedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования значка: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}
