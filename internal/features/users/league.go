// Package users — league.go содержит чистую функцию расчёта лиги по ауре.
package users

// Названия лиг, от высшей к низшей.
const (
	LeagueLegendary = "Legendary"
	LeagueDiamond   = "Diamond"
	LeagueGold      = "Gold"
	LeagueSilver    = "Silver"
	LeagueBronze    = "Bronze"
)

// LeagueFor возвращает лигу для заданной ауры.
//
// Пороги — включительные нижние границы, проверяются от высшего к низшему:
//
//	>= 5000 → Legendary
//	>= 2000 → Diamond
//	>= 1000 → Gold
//	>=  500 → Silver
//	иначе   → Bronze (включая отрицательную ауру)
func LeagueFor(auraTotal int64) string {
	switch {
	case auraTotal >= 5000:
		return LeagueLegendary
	case auraTotal >= 2000:
		return LeagueDiamond
	case auraTotal >= 1000:
		return LeagueGold
	case auraTotal >= 500:
		return LeagueSilver
	default:
		return LeagueBronze
	}
}

// Leagues возвращает все лиги в порядке убывания престижа.
// Используется для группировки рейтинга.
func Leagues() []string {
	return []string{LeagueLegendary, LeagueDiamond, LeagueGold, LeagueSilver, LeagueBronze}
}
