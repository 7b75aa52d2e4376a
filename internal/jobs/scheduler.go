// Package jobs — scheduler.go настраивает расписание: ночная сверка
// агрегатов и ежечасная чистка истёкших сессий.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// SessionPurger удаляет истёкшие сессии.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	auditor  *Auditor
	sessions SessionPurger
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(auditor *Auditor, sessions SessionPurger) *Scheduler {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Europe/Moscow, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		auditor:  auditor,
		sessions: sessions,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ночная сверка агрегатов в 03:00 по Москве
	s.cron.AddFunc("0 3 * * *", func() {
		log.Info("[CRON] Ночная сверка агрегатов ауры")
		mismatches, err := s.auditor.Run(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка сверки агрегатов")
			return
		}
		if mismatches > 0 {
			log.WithField("mismatches", mismatches).Error("[CRON] Сверка нашла расхождения")
		} else {
			log.Info("[CRON] Сверка завершена, расхождений нет")
		}
	})

	// Чистка истёкших сессий каждый час
	s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Чистка истёкших сессий")
		deleted, err := s.sessions.DeleteExpiredSessions(ctx)
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка чистки сессий")
			return
		}
		if deleted > 0 {
			log.WithField("deleted", deleted).Info("[CRON] Удалены истёкшие сессии")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
