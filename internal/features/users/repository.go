// Package users — repository.go выполняет операции с таблицами users,
// sessions и login_attempts.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/aura-backend/internal/common"
)

// Repository работает с таблицами пользователей и сессий.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий пользователей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create создаёт нового пользователя.
func (r *Repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (username, email, password_hash, role, aura_total, league, badge_points)
		VALUES ($1, $2, $3, $4, 0, $5, 0)
	`
	_, err := r.db.Exec(ctx, query, u.Username, u.Email, u.PasswordHash, u.Role, LeagueFor(0))
	if err != nil {
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

// GetByUsername возвращает пользователя по имени.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, email, password_hash, role, aura_total, league, badge_points, created_at, updated_at
		FROM users WHERE username = $1
	`
	var u User
	err := r.db.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.AuraTotal, &u.League, &u.BadgePoints, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return &u, nil
}

// Exists проверяет, занято ли имя пользователя.
func (r *Repository) Exists(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, username).Scan(&exists)
	return exists, err
}

// Count возвращает общее количество пользователей.
// Нужен для правила «первый зарегистрированный — админ» и для статистики.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// Ranking возвращает всех пользователей, отсортированных по убыванию ауры.
// При равной ауре порядок детерминированный — по имени пользователя.
func (r *Repository) Ranking(ctx context.Context) ([]*User, error) {
	query := `
		SELECT id, username, email, password_hash, role, aura_total, league, badge_points, created_at, updated_at
		FROM users
		ORDER BY aura_total DESC, username ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения рейтинга: %w", err)
	}
	defer rows.Close()

	var result []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
			&u.AuraTotal, &u.League, &u.BadgePoints, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, &u)
	}
	return result, rows.Err()
}

// ApplyAuraDeltaTx изменяет аура-тотал пользователя на delta ВНУТРИ переданной
// транзакции и синхронно пересчитывает лигу. Строка пользователя блокируется
// (FOR UPDATE) — все мутации одного пользователя сериализуются.
//
// Это единственное место в коде, где меняется aura_total: запись действия,
// исправление, удаление, бонус достижения и импорт значков — все проходят здесь.
func (r *Repository) ApplyAuraDeltaTx(ctx context.Context, tx pgx.Tx, username string, delta int64) (int64, string, error) {
	var current int64
	err := tx.QueryRow(ctx,
		`SELECT aura_total FROM users WHERE username = $1 FOR UPDATE`, username,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", common.ErrUserNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("ошибка блокировки пользователя: %w", err)
	}

	newTotal := current + delta
	league := LeagueFor(newTotal)

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET aura_total = $2, league = $3, updated_at = NOW()
		WHERE username = $1
	`, username, newTotal, league)
	if err != nil {
		return 0, "", fmt.Errorf("ошибка обновления ауры: %w", err)
	}

	return newTotal, league, nil
}

// AddBadgePointsTx увеличивает счётчик очков от значков внутри транзакции.
// Сам аура-тотал меняется отдельным вызовом ApplyAuraDeltaTx.
func (r *Repository) AddBadgePointsTx(ctx context.Context, tx pgx.Tx, username string, delta int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET badge_points = badge_points + $2, updated_at = NOW()
		WHERE username = $1
	`, username, delta)
	if err != nil {
		return fmt.Errorf("ошибка обновления очков значков: %w", err)
	}
	return nil
}

// Delete удаляет пользователя вместе с сессиями, достижениями, значками
// и журналом действий. Зачистка полная: освободившееся имя можно занять
// заново, и новый владелец не наследует чужой журнал и достижения.
func (r *Repository) Delete(ctx context.Context, username string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, query := range []string{
		`DELETE FROM sessions WHERE username = $1`,
		`DELETE FROM achievement_unlocks WHERE username = $1`,
		`DELETE FROM imported_badges WHERE username = $1`,
		`DELETE FROM login_attempts WHERE username = $1`,
		`DELETE FROM actions WHERE username = $1`,
	} {
		if _, err := tx.Exec(ctx, query, username); err != nil {
			return fmt.Errorf("ошибка удаления связанных записей: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("ошибка удаления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}

	return tx.Commit(ctx)
}

// --- Сессии ---

// CreateSession создаёт новую сессию.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	query := `INSERT INTO sessions (token, username, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.Exec(ctx, query, s.Token, s.Username, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// GetSession возвращает живую (неистёкшую) сессию по токену.
func (r *Repository) GetSession(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT id, token, username, created_at, expires_at
		FROM sessions
		WHERE token = $1 AND expires_at > NOW()
	`
	var s Session
	err := r.db.QueryRow(ctx, query, token).Scan(&s.ID, &s.Token, &s.Username, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return &s, nil
}

// DeleteSession удаляет сессию (logout). Отсутствующий токен — не ошибка.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteExpiredSessions удаляет истёкшие сессии. Вызывается кроном.
func (r *Repository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- Попытки входа ---

// LogLoginAttempt записывает попытку входа.
func (r *Repository) LogLoginAttempt(ctx context.Context, username string, success bool) error {
	query := `INSERT INTO login_attempts (username, success) VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, username, success)
	return err
}

// CountRecentFailedAttempts возвращает число неудачных попыток входа за период.
func (r *Repository) CountRecentFailedAttempts(ctx context.Context, username string, window time.Duration) (int, error) {
	since := time.Now().Add(-window)
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE username = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	err := r.db.QueryRow(ctx, query, username, since).Scan(&count)
	return count, err
}
