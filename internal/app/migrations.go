// Package app — migrations.go содержит SQL-миграции схемы.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/db/postgres"
)

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
		{2, migration002Actions},
		{3, migration003Achievements},
		{4, migration004Badges},
		{5, migration005Sessions},
		{6, migration006LoginAttempts},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(255) UNIQUE NOT NULL,
    email VARCHAR(255) NOT NULL DEFAULT '',
    password_hash VARCHAR(512) NOT NULL,
    role VARCHAR(32) NOT NULL DEFAULT 'user',
    aura_total BIGINT NOT NULL DEFAULT 0,
    league VARCHAR(32) NOT NULL DEFAULT 'Bronze',
    badge_points BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_aura_total ON users(aura_total DESC);
`

// actions без внешнего ключа на users: журнал чистится кодом в той же
// транзакции, что и удаление пользователя (users.Repository.Delete).
var migration002Actions = `
CREATE TABLE IF NOT EXISTS actions (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(255) NOT NULL,
    action_text TEXT NOT NULL,
    score_original BIGINT NOT NULL,
    score_corrected BIGINT,
    correction_note TEXT,
    rationale TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT NOW(),
    corrected_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_actions_username ON actions(username);
CREATE INDEX IF NOT EXISTS idx_actions_corrected ON actions(username) WHERE score_corrected IS NOT NULL;
`

var migration003Achievements = `
CREATE TABLE IF NOT EXISTS achievement_unlocks (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(255) NOT NULL,
    achievement_key VARCHAR(64) NOT NULL,
    unlocked_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (username, achievement_key)
);
CREATE INDEX IF NOT EXISTS idx_unlocks_username ON achievement_unlocks(username);
`

var migration004Badges = `
CREATE TABLE IF NOT EXISTS imported_badges (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(255) NOT NULL,
    source_id VARCHAR(255) NOT NULL,
    title TEXT NOT NULL,
    score BIGINT NOT NULL DEFAULT 0,
    rationale TEXT NOT NULL DEFAULT '',
    imported_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (username, source_id)
);
CREATE INDEX IF NOT EXISTS idx_badges_username ON imported_badges(username);
`

var migration005Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id BIGSERIAL PRIMARY KEY,
    token VARCHAR(255) UNIQUE NOT NULL,
    username VARCHAR(255) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_username ON sessions(username);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`

var migration006LoginAttempts = `
CREATE TABLE IF NOT EXISTS login_attempts (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(255) NOT NULL,
    success BOOLEAN NOT NULL,
    attempt_time TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_login_attempts_user_time ON login_attempts(username, attempt_time);
`
