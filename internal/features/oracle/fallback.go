package oracle

import "strings"

// Словари эвристики. Корни слов, а не целые слова: "ajud" покрывает
// "ajudei", "ajudar" и т.д.
var (
	positiveRoots = []string{"ajud", "bom", "fiz", "consegui", "estud", "trabalh"}
	negativeRoots = []string{"ruim", "errei", "falh", "problem"}
)

// fallbackRationale — фиксированное объяснение эвристической оценки.
const fallbackRationale = "Avaliação baseada em análise de palavras (IA temporariamente indisponível)"

// FallbackEvaluate оценивает действие по ключевым словам: +20 за каждый
// найденный позитивный корень, -20 за каждый негативный. Результат
// НЕ ограничивается диапазоном модели.
func FallbackEvaluate(action string) Evaluation {
	lower := strings.ToLower(action)

	var score int64
	for _, root := range positiveRoots {
		if strings.Contains(lower, root) {
			score += 20
		}
	}
	for _, root := range negativeRoots {
		if strings.Contains(lower, root) {
			score -= 20
		}
	}

	return Evaluation{Score: score, Rationale: fallbackRationale}
}
