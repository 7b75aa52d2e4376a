// Package achievements — repository.go читает срез состояния пользователя
// и атомарно фиксирует разблокировки с бонусами.
package achievements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/aura-backend/internal/features/users"
)

// Unlock — зафиксированная разблокировка достижения.
type Unlock struct {
	Username   string    `db:"username"`
	Key        string    `db:"achievement_key"`
	UnlockedAt time.Time `db:"unlocked_at"`
}

// Repository работает с таблицей achievement_unlocks.
type Repository struct {
	db    *pgxpool.Pool
	users *users.Repository
}

// NewRepository создаёт репозиторий достижений.
func NewRepository(db *pgxpool.Pool, usersRepo *users.Repository) *Repository {
	return &Repository{db: db, users: usersRepo}
}

// Snapshot собирает срез состояния пользователя для оценки предикатов.
// Для неизвестного пользователя возвращает (nil, nil) — оценка достижений
// по несуществующему имени тихо ничего не делает.
func (r *Repository) Snapshot(ctx context.Context, username string) (*Snapshot, error) {
	var s Snapshot

	err := r.db.QueryRow(ctx,
		`SELECT aura_total FROM users WHERE username = $1`, username,
	).Scan(&s.AuraTotal)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ауры: %w", err)
	}

	// Агрегаты по действующим оценкам. COALESCE нужен для пустого журнала.
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(MAX(COALESCE(score_corrected, score_original)), 0),
		       COALESCE(MIN(COALESCE(score_corrected, score_original)), 0),
		       COUNT(score_corrected),
		       COUNT(*) - COUNT(score_corrected)
		FROM actions WHERE username = $1
	`, username).Scan(&s.EntryCount, &s.MaxEffective, &s.MinEffective, &s.CorrectedCount, &s.UncorrectedCount)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения агрегатов журнала: %w", err)
	}

	unlocked, err := r.UnlockedKeys(ctx, username)
	if err != nil {
		return nil, err
	}
	s.Unlocked = unlocked
	return &s, nil
}

// UnlockedKeys возвращает ключи разблокированных достижений пользователя.
func (r *Repository) UnlockedKeys(ctx context.Context, username string) (map[string]bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT achievement_key FROM achievement_unlocks WHERE username = $1`, username)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения разблокировок: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("ошибка сканирования разблокировки: %w", err)
		}
		unlocked[key] = true
	}
	return unlocked, rows.Err()
}

// UnlockWithBonus фиксирует разблокировку и начисляет бонус в одной
// транзакции: либо оба изменения, либо ни одного. Повторная разблокировка
// того же ключа (в том числе гонкой) — no-op без повторного бонуса,
// это гарантирует UNIQUE(username, achievement_key).
func (r *Repository) UnlockWithBonus(ctx context.Context, username, key string, bonus int64) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO achievement_unlocks (username, achievement_key)
		VALUES ($1, $2)
		ON CONFLICT (username, achievement_key) DO NOTHING
	`, username, key)
	if err != nil {
		return false, fmt.Errorf("ошибка записи разблокировки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Уже разблокировано — бонус не начисляется повторно.
		return false, nil
	}

	if bonus != 0 {
		if _, _, err := r.users.ApplyAuraDeltaTx(ctx, tx, username, bonus); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return true, nil
}

// Unlocks возвращает разблокировки пользователя в порядке получения.
func (r *Repository) Unlocks(ctx context.Context, username string) ([]Unlock, error) {
	rows, err := r.db.Query(ctx, `
		SELECT username, achievement_key, unlocked_at
		FROM achievement_unlocks
		WHERE username = $1
		ORDER BY unlocked_at ASC, achievement_key ASC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения разблокировок: %w", err)
	}
	defer rows.Close()

	var result []Unlock
	for rows.Next() {
		var u Unlock
		if err := rows.Scan(&u.Username, &u.Key, &u.UnlockedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования разблокировки: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}
