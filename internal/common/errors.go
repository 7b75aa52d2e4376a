// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях сервиса.
// Эти ошибки позволяют обработчикам различать типы проблем
// и возвращать клиенту корректный HTTP-статус.
package common

import "errors"

// Ошибки пользователей и аутентификации
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrUserExists — имя пользователя уже занято
	ErrUserExists = errors.New("пользователь с таким именем уже существует")
	// ErrWrongCredentials — неверное имя пользователя или пароль
	ErrWrongCredentials = errors.New("неверное имя пользователя или пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток входа, подождите")
	// ErrSessionExpired — сессия истекла или не существует
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
)

// Ошибки журнала действий
var (
	// ErrEmptyAction — пустой текст действия
	ErrEmptyAction = errors.New("текст действия пуст")
	// ErrEntryNotFound — запись журнала с таким id не найдена
	ErrEntryNotFound = errors.New("запись не найдена")
)

// Ошибки импорта значков
var (
	// ErrBadgeProviderUnavailable — внешний провайдер значков не настроен или недоступен
	ErrBadgeProviderUnavailable = errors.New("провайдер значков недоступен")
)
