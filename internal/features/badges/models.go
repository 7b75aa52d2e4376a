// Package badges импортирует значки пользователя из внешнего провайдера
// и конвертирует их в очки ауры через оракул.
package badges

import "time"

// ProviderBadge — значок в том виде, в котором его отдаёт провайдер.
// Иконка и дата выдачи проносятся как есть: оценка их не использует,
// но контракт провайдера их включает.
type ProviderBadge struct {
	SourceID    string `json:"source_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IconRef     string `json:"icon"`
	AwardedAt   string `json:"awarded_at"` // Формат даты — на стороне провайдера
}

// ImportedBadge — значок, уже импортированный и оценённый.
// Пара (username, source_id) уникальна: повторный импорт не дублирует
// значки и не начисляет очки второй раз.
type ImportedBadge struct {
	ID         int64     `db:"id"`
	Username   string    `db:"username"`
	SourceID   string    `db:"source_id"`
	Title      string    `db:"title"`
	Score      int64     `db:"score"`     // Оценка оракула, зафиксированная при импорте
	Rationale  string    `db:"rationale"` // Объяснение оценки
	ImportedAt time.Time `db:"imported_at"`
}
