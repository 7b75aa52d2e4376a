// Package ledger ведёт журнал оценённых действий пользователей.
// Каждая запись оценивается оракулом при создании; администратор может
// исправить оценку или удалить запись, и аура пересчитывается на дельту.
package ledger

import "time"

// Entry — запись журнала действий.
type Entry struct {
	ID             int64      `db:"id"`              // Монотонный уникальный ID, не переиспользуется после удаления
	Username       string     `db:"username"`        // Владелец действия (без FK: записи переживают удаление пользователя)
	Action         string     `db:"action_text"`     // Текст действия
	ScoreOriginal  int64      `db:"score_original"`  // Оценка оракула на момент создания, неизменяемая
	ScoreCorrected *int64     `db:"score_corrected"` // Исправление администратора, NULL если не исправлялась
	CorrectionNote *string    `db:"correction_note"` // Комментарий администратора к исправлению
	Rationale      string     `db:"rationale"`       // Объяснение оценки от оракула
	CreatedAt      time.Time  `db:"created_at"`
	CorrectedAt    *time.Time `db:"corrected_at"`
}

// EffectiveScore возвращает действующую оценку записи:
// исправленную, если она есть, иначе исходную.
func (e *Entry) EffectiveScore() int64 {
	if e.ScoreCorrected != nil {
		return *e.ScoreCorrected
	}
	return e.ScoreOriginal
}

// Corrected сообщает, исправлялась ли запись администратором.
func (e *Entry) Corrected() bool {
	return e.ScoreCorrected != nil
}
