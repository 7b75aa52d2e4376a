// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики
// и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aura-backend/internal/common"
	"serotonyl.ru/aura-backend/internal/config"
	"serotonyl.ru/aura-backend/internal/db/postgres"
	"serotonyl.ru/aura-backend/internal/features/achievements"
	"serotonyl.ru/aura-backend/internal/features/badges"
	"serotonyl.ru/aura-backend/internal/features/ledger"
	"serotonyl.ru/aura-backend/internal/features/oracle"
	"serotonyl.ru/aura-backend/internal/features/users"
	"serotonyl.ru/aura-backend/internal/jobs"
	"serotonyl.ru/aura-backend/internal/server"
)

// App содержит все компоненты приложения.
type App struct {
	Router    *gin.Engine
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Limiter   *server.RateLimiter
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Оракул ===
	// Без API-ключа все оценки идут по запасной эвристике.
	var primary oracle.Scorer
	if cfg.GeminiAPIKey != "" {
		gemini, err := oracle.NewGeminiScorer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout, cfg.OracleMaxExamples)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации Gemini: %w", err)
		}
		primary = gemini
		log.WithField("model", cfg.GeminiModel).Info("Оракул Gemini подключён")
	} else {
		log.Warn("GEMINI_API_KEY не задан — оценка только по эвристике")
	}
	oracleService := oracle.NewService(primary)

	// === 3. Репозитории ===
	usersRepo := users.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool, usersRepo)
	achievementsRepo := achievements.NewRepository(pool, usersRepo)
	badgesRepo := badges.NewRepository(pool, usersRepo)

	// === 4. Сервисы ===
	usersService := users.NewService(usersRepo, cfg.SessionTTL, cfg.LoginMaxAttempts, cfg.LoginAttemptsWindow)
	achievementsService := achievements.NewService(achievementsRepo)
	ledgerService := ledger.NewService(ledgerRepo, oracleService, achievementsService)
	badgeProvider := badges.NewHTTPProvider(cfg.BadgeProviderURL, cfg.BadgePageSize, cfg.BadgeHTTPTimeout)
	badgesService := badges.NewService(badgesRepo, badgeProvider, oracleService, achievementsService, cfg.BadgeBatchSize)

	// === 5. Обработчики ===
	usersHandlers := users.NewHandlers(usersService)
	ledgerHandlers := ledger.NewHandlers(ledgerService)
	achievementsHandlers := achievements.NewHandlers(achievementsService)
	badgesHandlers := badges.NewHandlers(badgesService)

	// === 6. HTTP-роутер ===
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := server.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	resolve := func(ctx context.Context, token string) (string, string, error) {
		u, err := usersService.GetBySession(ctx, token)
		if err != nil {
			return "", "", err
		}
		return u.Username, u.Role, nil
	}

	router := server.NewRouter(resolve, limiter, server.Routes{
		Register: usersHandlers.Register,
		Login:    usersHandlers.Login,
		Profile:  usersHandlers.Profile,
		Ranking:  usersHandlers.Ranking,

		Logout:       usersHandlers.Logout,
		Me:           meHandler(usersService, ledgerService, achievementsService),
		SubmitAction: ledgerHandlers.Submit,
		History:      ledgerHandlers.History,
		Achievements: achievementsHandlers.Catalog,
		BadgesImport: badgesHandlers.Import,
		BadgesList:   badgesHandlers.List,

		AdminRecent:     ledgerHandlers.Recent,
		AdminCorrect:    ledgerHandlers.Correct,
		AdminDelete:     ledgerHandlers.Delete,
		AdminStats:      adminStatsHandler(usersRepo, ledgerService),
		AdminRemoveUser: usersHandlers.RemoveUser,
	})

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(jobs.NewAuditor(pool), usersRepo)

	return &App{
		Router:    router,
		Scheduler: scheduler,
		DB:        pool,
		Limiter:   limiter,
	}, nil
}

// meHandler отдаёт профиль текущего пользователя вместе со счётчиком
// действий и разблокированными достижениями. Склейка трёх сервисов живёт
// здесь, чтобы пакеты фич не зависели друг от друга.
func meHandler(usersService *users.Service, ledgerService *ledger.Service, achievementsService *achievements.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		username := server.CurrentUsername(c)

		u, err := usersService.Profile(ctx, username)
		if err != nil {
			server.RespondError(c, http.StatusNotFound, "user_not_found", err)
			return
		}
		history, err := ledgerService.History(ctx, username)
		if err != nil {
			log.WithError(err).Error("Ошибка получения истории")
			server.RespondError(c, http.StatusInternalServerError, "internal", err)
			return
		}
		catalog, unlocked, err := achievementsService.UserCatalog(ctx, username)
		if err != nil {
			log.WithError(err).Error("Ошибка получения достижений")
			server.RespondError(c, http.StatusInternalServerError, "internal", err)
			return
		}

		unlockedViews := make([]gin.H, 0, len(unlocked))
		for _, def := range catalog {
			if !unlocked[def.Key] {
				continue
			}
			unlockedViews = append(unlockedViews, gin.H{
				"key":         def.Key,
				"name":        def.Name,
				"description": def.Description,
				"bonus":       def.Bonus,
			})
		}

		server.RespondOK(c, gin.H{
			"username":     u.Username,
			"email":        u.Email,
			"role":         u.Role,
			"aura_total":   u.AuraTotal,
			"league":       u.League,
			"badge_points": u.BadgePoints,
			"created_at":   common.FormatDateTime(u.CreatedAt),
			"action_count": len(history),
			"achievements": unlockedViews,
		})
	}
}

// adminStatsHandler отдаёт сводные счётчики для админки. Точность оракула
// считается как доля записей, не потребовавших исправления.
func adminStatsHandler(usersRepo *users.Repository, ledgerService *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCount, err := usersRepo.Count(c.Request.Context())
		if err != nil {
			log.WithError(err).Error("Ошибка подсчёта пользователей")
			server.RespondError(c, http.StatusInternalServerError, "internal", err)
			return
		}
		total, corrected, err := ledgerService.Stats(c.Request.Context())
		if err != nil {
			log.WithError(err).Error("Ошибка статистики журнала")
			server.RespondError(c, http.StatusInternalServerError, "internal", err)
			return
		}

		accuracy := 100.0
		if total > 0 {
			accuracy = math.Round(float64(total-corrected)/float64(total)*1000) / 10
		}

		server.RespondOK(c, gin.H{
			"users":             userCount,
			"actions":           total,
			"corrected_actions": corrected,
			"oracle_accuracy":   accuracy,
		})
	}
}
