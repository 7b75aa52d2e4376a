package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeagueFor(t *testing.T) {
	tests := []struct {
		name string
		aura int64
		want string
	}{
		{"сильно отрицательная аура", -5000, LeagueBronze},
		{"ноль", 0, LeagueBronze},
		{"на единицу ниже Silver", 499, LeagueBronze},
		{"нижняя граница Silver", 500, LeagueSilver},
		{"на единицу ниже Gold", 999, LeagueSilver},
		{"нижняя граница Gold", 1000, LeagueGold},
		{"на единицу ниже Diamond", 1999, LeagueGold},
		{"нижняя граница Diamond", 2000, LeagueDiamond},
		{"на единицу ниже Legendary", 4999, LeagueDiamond},
		{"нижняя граница Legendary", 5000, LeagueLegendary},
		{"далеко за Legendary", 1000000, LeagueLegendary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LeagueFor(tt.aura))
		})
	}
}

// Лига не может понизиться при росте ауры.
func TestLeagueForMonotonic(t *testing.T) {
	rank := map[string]int{
		LeagueBronze:    0,
		LeagueSilver:    1,
		LeagueGold:      2,
		LeagueDiamond:   3,
		LeagueLegendary: 4,
	}

	prev := LeagueFor(-200)
	for aura := int64(-199); aura <= 6000; aura++ {
		cur := LeagueFor(aura)
		assert.GreaterOrEqual(t, rank[cur], rank[prev], "аура %d", aura)
		prev = cur
	}
}

func TestLeaguesOrder(t *testing.T) {
	assert.Equal(t, []string{
		LeagueLegendary, LeagueDiamond, LeagueGold, LeagueSilver, LeagueBronze,
	}, Leagues())
}
