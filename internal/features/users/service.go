// Package users — service.go содержит бизнес-логику регистрации, входа
// и просмотра профилей.
package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/common"
)

// Store — операции с хранилищем, нужные сервису пользователей.
// Реализуется Repository; в тестах подменяется фейком.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Count(ctx context.Context) (int, error)
	Ranking(ctx context.Context) ([]*User, error)
	Delete(ctx context.Context, username string) error

	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error

	LogLoginAttempt(ctx context.Context, username string, success bool) error
	CountRecentFailedAttempts(ctx context.Context, username string, window time.Duration) (int, error)
}

// Service реализует сценарии работы с пользователями.
type Service struct {
	store Store

	sessionTTL    time.Duration
	maxAttempts   int
	attemptWindow time.Duration
}

// NewService создаёт сервис пользователей.
func NewService(store Store, sessionTTL time.Duration, maxAttempts int, attemptWindow time.Duration) *Service {
	return &Service{
		store:         store,
		sessionTTL:    sessionTTL,
		maxAttempts:   maxAttempts,
		attemptWindow: attemptWindow,
	}
}

// Register регистрирует нового пользователя.
// Самый первый зарегистрированный пользователь становится администратором.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, common.ErrWrongCredentials
	}

	exists, err := s.store.Exists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки имени: %w", err)
	}
	if exists {
		return nil, common.ErrUserExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	role := RoleUser
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	if count == 0 {
		role = RoleAdmin
	}

	u := &User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         role,
		League:       LeagueFor(0),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"username": username,
		"role":     role,
	}).Info("Зарегистрирован новый пользователь")

	return s.store.GetByUsername(ctx, username)
}

// Login проверяет учётные данные и выдаёт токен сессии.
// После maxAttempts неудачных попыток за attemptWindow вход блокируется.
func (s *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	failed, err := s.store.CountRecentFailedAttempts(ctx, username, s.attemptWindow)
	if err != nil {
		return "", nil, fmt.Errorf("ошибка проверки попыток входа: %w", err)
	}
	if failed >= s.maxAttempts {
		log.WithField("username", username).Warn("Вход заблокирован: слишком много неудачных попыток")
		return "", nil, common.ErrTooManyAttempts
	}

	u, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		// Не раскрываем, существует ли пользователь
		_ = s.store.LogLoginAttempt(ctx, username, false)
		return "", nil, common.ErrWrongCredentials
	}

	if !VerifyPassword(password, u.PasswordHash) {
		_ = s.store.LogLoginAttempt(ctx, username, false)
		return "", nil, common.ErrWrongCredentials
	}

	if err := s.store.LogLoginAttempt(ctx, username, true); err != nil {
		log.WithError(err).Error("Ошибка записи попытки входа")
	}

	session := &Session{
		Token:     uuid.New().String(),
		Username:  u.Username,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", nil, err
	}

	log.WithField("username", username).Info("Пользователь вошёл в систему")
	return session.Token, u, nil
}

// Logout завершает сессию по токену.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// GetBySession возвращает пользователя по токену сессии.
func (s *Service) GetBySession(ctx context.Context, token string) (*User, error) {
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.store.GetByUsername(ctx, session.Username)
}

// Profile возвращает профиль пользователя по имени.
func (s *Service) Profile(ctx context.Context, username string) (*User, error) {
	return s.store.GetByUsername(ctx, username)
}

// Ranking возвращает рейтинг всех пользователей.
func (s *Service) Ranking(ctx context.Context) ([]*User, error) {
	return s.store.Ranking(ctx)
}

// Remove удаляет пользователя (админская операция) вместе со всеми его
// данными, включая журнал действий.
func (s *Service) Remove(ctx context.Context, username string) error {
	if err := s.store.Delete(ctx, username); err != nil {
		return err
	}
	log.WithField("username", username).Info("Пользователь удалён администратором")
	return nil
}
