// Package users управляет пользователями сервиса: регистрацией, сессиями,
// агрегатом ауры и лигами. models.go описывает структуры таблиц users и sessions.
package users

import "time"

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет пользователя сервиса.
type User struct {
	ID           int64     `db:"id"`            // Автоинкрементный ID записи в БД
	Username     string    `db:"username"`      // Уникальное имя пользователя
	Email        string    `db:"email"`         // Почта
	PasswordHash string    `db:"password_hash"` // Хеш пароля (Argon2id)
	Role         string    `db:"role"`          // "user" или "admin"
	AuraTotal    int64     `db:"aura_total"`    // Накопленная аура (может быть отрицательной)
	League       string    `db:"league"`        // Денормализованная лига, пересчитывается при каждом изменении ауры
	BadgePoints  int64     `db:"badge_points"`  // Вклад импортированных значков в аура-тотал
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Session — сессия пользователя. Токен выдаётся при входе и проверяется
// middleware на каждом запросе.
type Session struct {
	ID        int64     `db:"id"`
	Token     string    `db:"token"`
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
