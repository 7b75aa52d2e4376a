// Package ledger — repository.go выполняет операции с таблицей actions.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/aura-backend/internal/common"
	"serotonyl.ru/aura-backend/internal/features/oracle"
	"serotonyl.ru/aura-backend/internal/features/users"
)

const entryColumns = `id, username, action_text, score_original, score_corrected, correction_note, rationale, created_at, corrected_at`

// Repository работает с журналом действий. Все мутации меняют аура-тотал
// владельца в той же транзакции через users.Repository.ApplyAuraDeltaTx.
type Repository struct {
	db    *pgxpool.Pool
	users *users.Repository
}

// NewRepository создаёт репозиторий журнала.
func NewRepository(db *pgxpool.Pool, usersRepo *users.Repository) *Repository {
	return &Repository{db: db, users: usersRepo}
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.Username, &e.Action, &e.ScoreOriginal, &e.ScoreCorrected,
		&e.CorrectionNote, &e.Rationale, &e.CreatedAt, &e.CorrectedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Record вставляет новую запись и применяет её оценку к ауре владельца.
// Запись и изменение ауры атомарны.
func (r *Repository) Record(ctx context.Context, e *Entry) (int64, string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO actions (username, action_text, score_original, rationale)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, e.Username, e.Action, e.ScoreOriginal, e.Rationale).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return 0, "", fmt.Errorf("ошибка записи действия: %w", err)
	}

	newTotal, league, err := r.users.ApplyAuraDeltaTx(ctx, tx, e.Username, e.ScoreOriginal)
	if err != nil {
		return 0, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, "", fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return newTotal, league, nil
}

// Correct выставляет исправленную оценку записи и применяет к ауре
// владельца дельту между новой и старой действующей оценкой.
func (r *Repository) Correct(ctx context.Context, id, newScore int64, note string) (*Entry, int64, string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, 0, "", fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	e, err := scanEntry(tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM actions WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, "", common.ErrEntryNotFound
	}
	if err != nil {
		return nil, 0, "", fmt.Errorf("ошибка чтения записи: %w", err)
	}

	// Дельта считается от действующей оценки, а не от исходной:
	// повторное исправление не должно применять старую дельту ещё раз.
	delta := newScore - e.EffectiveScore()

	_, err = tx.Exec(ctx, `
		UPDATE actions
		SET score_corrected = $2, correction_note = $3, corrected_at = NOW()
		WHERE id = $1
	`, id, newScore, note)
	if err != nil {
		return nil, 0, "", fmt.Errorf("ошибка исправления записи: %w", err)
	}

	newTotal, league, err := r.users.ApplyAuraDeltaTx(ctx, tx, e.Username, delta)
	if errors.Is(err, common.ErrUserNotFound) {
		// Журнал удаляется вместе с владельцем, так что запись без
		// владельца — рассинхрон данных. Исправлять в нём нечего.
		return nil, 0, "", common.ErrEntryNotFound
	}
	if err != nil {
		return nil, 0, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, "", fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	e.ScoreCorrected = &newScore
	e.CorrectionNote = &note
	return e, newTotal, league, nil
}

// Delete удаляет запись и вычитает её действующую оценку из ауры владельца.
// Удаление несуществующей записи — тихий no-op (found = false).
// Разблокированные достижения при этом сохраняются.
func (r *Repository) Delete(ctx context.Context, id int64) (found bool, username string, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, "", fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	e, err := scanEntry(tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM actions WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("ошибка чтения записи: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM actions WHERE id = $1`, id); err != nil {
		return false, "", fmt.Errorf("ошибка удаления записи: %w", err)
	}

	// Запись без владельца — рассинхрон данных; её удалению это не мешает.
	_, _, err = r.users.ApplyAuraDeltaTx(ctx, tx, e.Username, -e.EffectiveScore())
	if err != nil && !errors.Is(err, common.ErrUserNotFound) {
		return false, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, "", fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return true, e.Username, nil
}

// HistoryByUser возвращает записи пользователя от новых к старым.
func (r *Repository) HistoryByUser(ctx context.Context, username string) ([]*Entry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+entryColumns+` FROM actions WHERE username = $1 ORDER BY id DESC`, username)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// Recent возвращает последние записи по всем пользователям для админки.
// JOIN с users страхует от записей, оставшихся без владельца.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.username, a.action_text, a.score_original, a.score_corrected,
		       a.correction_note, a.rationale, a.created_at, a.corrected_at
		FROM actions a
		JOIN users u ON u.username = a.username
		ORDER BY a.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения последних действий: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// CorrectedExamples возвращает исправленные записи пользователя в порядке
// создания — эталонные примеры для оракула.
func (r *Repository) CorrectedExamples(ctx context.Context, username string) ([]oracle.Example, error) {
	rows, err := r.db.Query(ctx, `
		SELECT action_text, score_corrected FROM actions
		WHERE username = $1 AND score_corrected IS NOT NULL
		ORDER BY id ASC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения исправленных примеров: %w", err)
	}
	defer rows.Close()

	var examples []oracle.Example
	for rows.Next() {
		var ex oracle.Example
		if err := rows.Scan(&ex.Action, &ex.Score); err != nil {
			return nil, fmt.Errorf("ошибка сканирования примера: %w", err)
		}
		examples = append(examples, ex)
	}
	return examples, rows.Err()
}

// Counts возвращает количество записей и исправлений для статистики админки.
func (r *Repository) Counts(ctx context.Context) (total, corrected int64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(score_corrected) FROM actions
	`).Scan(&total, &corrected)
	return total, corrected, err
}

func collectEntries(rows pgx.Rows) ([]*Entry, error) {
	var result []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
