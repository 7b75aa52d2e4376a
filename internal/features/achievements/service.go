// Package achievements — service.go содержит алгоритм оценки достижений.
package achievements

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Store — операции с хранилищем, нужные сервису достижений.
type Store interface {
	// Snapshot возвращает срез состояния пользователя; (nil, nil) для неизвестного.
	Snapshot(ctx context.Context, username string) (*Snapshot, error)
	// UnlockWithBonus атомарно фиксирует разблокировку и бонус.
	// false — ключ уже был разблокирован.
	UnlockWithBonus(ctx context.Context, username, key string, bonus int64) (bool, error)
	UnlockedKeys(ctx context.Context, username string) (map[string]bool, error)
}

// Service оценивает достижения пользователей.
type Service struct {
	store Store
}

// NewService создаёт сервис достижений.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Evaluate оценивает все предикаты каталога против текущего состояния
// пользователя и разблокирует новые достижения. Вызывается после каждого
// события, которое могло изменить условия: новое действие, исправление,
// импорт значков.
//
// Оценка идемпотентна: повторный вызов без изменений состояния ничего
// не разблокирует. Неизвестный пользователь — тихий no-op.
func (s *Service) Evaluate(ctx context.Context, username string) ([]Definition, error) {
	snap, err := s.store.Snapshot(ctx, username)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	// Один проход по каталогу против загруженного среза. Бонусы, выданные
	// в этом же проходе, не меняют срез: каскадные разблокировки
	// (бонус поднял ауру до порога другого достижения) произойдут при
	// следующем событии.
	var newly []Definition
	for _, def := range Catalog() {
		if snap.Unlocked[def.Key] || !def.Qualifies(snap) {
			continue
		}

		inserted, err := s.store.UnlockWithBonus(ctx, username, def.Key, def.Bonus)
		if err != nil {
			return newly, err
		}
		if !inserted {
			continue
		}

		log.WithFields(log.Fields{
			"username":    username,
			"achievement": def.Key,
			"bonus":       def.Bonus,
		}).Info("Разблокировано достижение")
		newly = append(newly, def)
	}
	return newly, nil
}

// UserCatalog возвращает каталог с отметками о разблокировке для пользователя.
func (s *Service) UserCatalog(ctx context.Context, username string) ([]Definition, map[string]bool, error) {
	unlocked, err := s.store.UnlockedKeys(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	return Catalog(), unlocked, nil
}
