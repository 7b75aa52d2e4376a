// Package achievements управляет достижениями: каталогом, предикатами
// и одноразовой выдачей бонусов к ауре.
package achievements

// Snapshot — срез состояния пользователя, по которому оцениваются
// предикаты. Предикаты смотрят на текущее состояние целиком, а не на
// дельты событий, поэтому повторная оценка идемпотентна.
type Snapshot struct {
	AuraTotal        int64           // Текущая аура (включая ранее выданные бонусы)
	EntryCount       int64           // Всего записей в журнале
	MaxEffective     int64           // Максимальная действующая оценка одной записи
	MinEffective     int64           // Минимальная действующая оценка одной записи
	CorrectedCount   int64           // Записей с исправлением администратора
	UncorrectedCount int64           // Записей без исправления
	Unlocked         map[string]bool // Уже разблокированные ключи
}

// Definition — достижение каталога.
type Definition struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Bonus       int64  `json:"bonus"`

	// Qualifies проверяет, выполнено ли условие достижения.
	Qualifies func(s *Snapshot) bool `json:"-"`
}

// catalog — все достижения в порядке оценки. Порядок фиксированный:
// от него зависит порядок разблокировки при одном событии.
var catalog = []Definition{
	{
		Key: "first-action", Name: "🌱 Первое действие",
		Description: "Записал своё первое действие", Bonus: 10,
		Qualifies: func(s *Snapshot) bool { return s.EntryCount >= 1 },
	},
	{
		Key: "consistent", Name: "🔥 Постоянство",
		Description: "Записал 10 действий", Bonus: 50,
		Qualifies: func(s *Snapshot) bool { return s.EntryCount >= 10 },
	},
	{
		Key: "unstoppable", Name: "⚡ Неудержимый",
		Description: "Записал 50 действий", Bonus: 200,
		Qualifies: func(s *Snapshot) bool { return s.EntryCount >= 50 },
	},
	{
		Key: "centurion", Name: "💯 Центурион",
		Description: "Записал 100 действий", Bonus: 500,
		Qualifies: func(s *Snapshot) bool { return s.EntryCount >= 100 },
	},
	{
		Key: "first-star", Name: "🌟 Первая звезда",
		Description: "Получил +100 ауры за одно действие", Bonus: 50,
		Qualifies: func(s *Snapshot) bool { return s.EntryCount > 0 && s.MaxEffective >= 100 },
	},
	{
		Key: "supernova", Name: "💫 Сверхновая",
		Description: "Получил +500 ауры за одно действие", Bonus: 300,
		Qualifies: func(s *Snapshot) bool { return s.EntryCount > 0 && s.MaxEffective >= 500 },
	},
	{
		Key: "radiant-sun", Name: "☀️ Сияющее солнце",
		Description: "Набрал 1000 ауры", Bonus: 100,
		Qualifies: func(s *Snapshot) bool { return s.AuraTotal >= 1000 },
	},
	{
		Key: "galaxy", Name: "🌌 Галактика",
		Description: "Набрал 5000 ауры", Bonus: 500,
		Qualifies: func(s *Snapshot) bool { return s.AuraTotal >= 5000 },
	},
	{
		Key: "first-fall", Name: "💀 Первое падение",
		Description: "Потерял -100 ауры за одно действие", Bonus: 0,
		Qualifies: func(s *Snapshot) bool { return s.EntryCount > 0 && s.MinEffective <= -100 },
	},
	{
		Key: "abyss", Name: "🔻 Бездна",
		Description: "Ушёл в отрицательную ауру", Bonus: 0,
		Qualifies: func(s *Snapshot) bool { return s.AuraTotal < 0 },
	},
	{
		Key: "mentor", Name: "👨‍🏫 Наставник",
		Description: "5 действий исправлены администратором", Bonus: 100,
		Qualifies: func(s *Snapshot) bool { return s.CorrectedCount >= 5 },
	},
	{
		Key: "precise", Name: "🎯 Точный",
		Description: "10 действий без единого исправления", Bonus: 150,
		Qualifies: func(s *Snapshot) bool { return s.UncorrectedCount >= 10 },
	},
}

// Catalog возвращает все достижения в порядке оценки.
func Catalog() []Definition {
	return catalog
}
