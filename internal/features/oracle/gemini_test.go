package oracle

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampScore(t *testing.T) {
	assert.Equal(t, int64(100), clampScore(250))
	assert.Equal(t, int64(-100), clampScore(-9000))
	assert.Equal(t, int64(37), clampScore(37))
	assert.Equal(t, int64(-100), clampScore(-100))
	assert.Equal(t, int64(100), clampScore(100))
}

// Модель оборачивает JSON в markdown и пояснения — регулярка должна
// выцепить объект из любого такого ответа.
func TestJSONObjectExtraction(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"чистый JSON", `{"aura": 50, "explicacao": "boa"}`, `{"aura": 50, "explicacao": "boa"}`},
		{"markdown-обёртка", "```json\n{\"aura\": 10, \"explicacao\": \"ok\"}\n```", `{"aura": 10, "explicacao": "ok"}`},
		{"текст вокруг", "Claro! {\"aura\": -20,\n\"explicacao\": \"ruim\"} Espero ter ajudado.", "{\"aura\": -20,\n\"explicacao\": \"ruim\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jsonObjectRe.FindString(tt.response))
		})
	}

	assert.Empty(t, jsonObjectRe.FindString("resposta sem json nenhum"))
}

func TestParseEvaluation(t *testing.T) {
	ev, err := parseEvaluation(`{"aura": 42, "explicacao": "boa ação"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ev.Score)
	assert.Equal(t, "boa ação", ev.Rationale)

	// Оценка вне диапазона ограничивается
	ev, err = parseEvaluation(`Claro! {"aura": 500, "explicacao": "épico"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(100), ev.Score)

	// Пустое объяснение заменяется заглушкой
	ev, err = parseEvaluation(`{"aura": 5}`)
	require.NoError(t, err)
	assert.Equal(t, "Avaliação automática", ev.Rationale)
}

// Ответ вовсе без JSON — нулевая оценка без ошибки, а нечитаемый JSON —
// ошибка, по которой фасад уходит на эвристику.
func TestParseEvaluationInvalid(t *testing.T) {
	ev, err := parseEvaluation("não sei avaliar isso")
	require.NoError(t, err)
	assert.Zero(t, ev.Score)
	assert.Equal(t, "Resposta inválida da IA", ev.Rationale)

	_, err = parseEvaluation(`{"aura": "muitos", "explicacao": }`)
	assert.Error(t, err)
}

func TestTrimExamples(t *testing.T) {
	examples := []Example{
		{Action: "a", Score: 1},
		{Action: "b", Score: 2},
		{Action: "c", Score: 3},
	}

	// Остаются самые свежие (хвост среза)
	trimmed := trimExamples(examples, 2)
	require.Len(t, trimmed, 2)
	assert.Equal(t, "b", trimmed[0].Action)
	assert.Equal(t, "c", trimmed[1].Action)

	assert.Len(t, trimExamples(examples, 10), 3)
	assert.Len(t, trimExamples(examples, 0), 3)
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("ajudei um colega", []Example{
		{Action: "estudei a noite toda", Score: 40},
	})

	assert.Contains(t, prompt, "avaliador de aura")
	assert.Contains(t, prompt, "entre -100 e 100")
	assert.Contains(t, prompt, "'estudei a noite toda' = 40 aura")
	assert.Contains(t, prompt, "Avalie esta ação: 'ajudei um colega'")
	assert.Contains(t, prompt, `{"aura": numero, "explicacao": "texto"}`)
}

func TestBuildPromptWithoutExamples(t *testing.T) {
	prompt := buildPrompt("fiz algo", nil)
	assert.NotContains(t, prompt, "Exemplos de avaliações corretas")
}

func TestBuildBatchPrompt(t *testing.T) {
	prompt := buildBatchPrompt([]string{"primeiro", "segundo"}, nil)

	assert.Contains(t, prompt, "0: 'primeiro'")
	assert.Contains(t, prompt, "1: 'segundo'")
	assert.Contains(t, prompt, `[{"indice": numero, "aura": numero, "explicacao": "texto"}]`)
}

// Фасад без основного оракула всегда отвечает эвристикой.
func TestServiceFallsBackWithoutPrimary(t *testing.T) {
	s := NewService(nil)

	ev := s.Evaluate(t.Context(), "fiz um favor", nil)
	assert.Equal(t, int64(20), ev.Score)
	assert.True(t, strings.Contains(ev.Rationale, "indisponível"))

	evs := s.EvaluateBatch(t.Context(), []string{"fiz um favor", "errei"}, nil)
	require.Len(t, evs, 2)
	assert.Equal(t, int64(20), evs[0].Score)
	assert.Equal(t, int64(-20), evs[1].Score)
}

// failingScorer имитирует недоступную модель.
type failingScorer struct{}

func (failingScorer) Evaluate(context.Context, string, []Example) (Evaluation, error) {
	return Evaluation{}, assert.AnError
}

func (failingScorer) EvaluateBatch(context.Context, []string, []Example) ([]Evaluation, error) {
	return nil, assert.AnError
}

// Сбой основного оракула логируется, оценка уходит на эвристику.
func TestServiceFallsBackOnPrimaryError(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	s := NewService(failingScorer{})

	ev := s.Evaluate(t.Context(), "fiz um favor", nil)
	assert.Equal(t, int64(20), ev.Score)
	assert.Contains(t, ev.Rationale, "indisponível")

	evs := s.EvaluateBatch(t.Context(), []string{"errei"}, nil)
	require.Len(t, evs, 1)
	assert.Equal(t, int64(-20), evs[0].Score)

	var warns int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warns++
		}
	}
	assert.GreaterOrEqual(t, warns, 2, "каждый откат на эвристику должен быть залогирован")
}
