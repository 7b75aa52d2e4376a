package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPluralizePoints(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{1, "очко"},
		{2, "очка"},
		{4, "очка"},
		{5, "очков"},
		{11, "очков"},
		{12, "очков"},
		{14, "очков"},
		{21, "очко"},
		{22, "очка"},
		{100, "очков"},
		{101, "очко"},
		{111, "очков"},
		{0, "очков"},
		{-1, "очко"},
		{-22, "очка"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PluralizePoints(tt.n), "n=%d", tt.n)
	}
}

func TestFormatAuraAmount(t *testing.T) {
	assert.Equal(t, "+100 очков ауры", FormatAuraAmount(100))
	assert.Equal(t, "+1 очко ауры", FormatAuraAmount(1))
	assert.Equal(t, "+0 очков ауры", FormatAuraAmount(0))
	assert.Equal(t, "-50 очков ауры", FormatAuraAmount(-50))
}

func TestFormatDateTime(t *testing.T) {
	moment := time.Date(2025, 3, 7, 18, 45, 0, 0, time.UTC)
	assert.Equal(t, "07.03.2025 18:45", FormatDateTime(moment))
}
