// Package oracle — gemini.go содержит клиент модели Gemini.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Параметры генерации. Низкий лимит токенов — ответ всегда короткий JSON.
const (
	geminiTemperature          float32 = 0.7
	geminiMaxOutputTokens      int32   = 100
	geminiBatchMaxOutputTokens int32   = 2048
)

// jsonObjectRe вырезает первый JSON-объект из ответа модели.
// Модель иногда оборачивает JSON в markdown или пояснительный текст.
var (
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
	jsonArrayRe  = regexp.MustCompile(`(?s)\[.*\]`)
)

// GeminiScorer оценивает действия через модель Gemini.
type GeminiScorer struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	maxExamples int
}

// NewGeminiScorer создаёт клиент Gemini.
func NewGeminiScorer(ctx context.Context, apiKey, model string, timeout time.Duration, maxExamples int) (*GeminiScorer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента Gemini: %w", err)
	}
	return &GeminiScorer{
		client:      client,
		model:       model,
		timeout:     timeout,
		maxExamples: maxExamples,
	}, nil
}

// Evaluate оценивает одно действие. Эталонные примеры (последние
// maxExamples исправлений) включаются в промпт для обучения в контексте.
func (g *GeminiScorer) Evaluate(ctx context.Context, action string, examples []Example) (Evaluation, error) {
	prompt := buildPrompt(action, trimExamples(examples, g.maxExamples))

	text, err := g.generate(ctx, prompt, geminiMaxOutputTokens)
	if err != nil {
		return Evaluation{}, err
	}
	return parseEvaluation(text)
}

// parseEvaluation извлекает объект оценки из свободного текста ответа.
// Ответ вовсе без JSON — валидный «отказ» модели с нулевой оценкой;
// JSON, который не разбирается, — сбой, ошибка уходит вызывающему.
func parseEvaluation(text string) (Evaluation, error) {
	match := jsonObjectRe.FindString(text)
	if match == "" {
		log.WithField("response", text).Warn("Gemini вернул ответ без JSON")
		return Evaluation{Score: 0, Rationale: "Resposta inválida da IA"}, nil
	}

	var parsed struct {
		Aura       int64  `json:"aura"`
		Explicacao string `json:"explicacao"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return Evaluation{}, fmt.Errorf("ошибка разбора ответа Gemini: %w", err)
	}

	rationale := parsed.Explicacao
	if rationale == "" {
		rationale = "Avaliação automática"
	}

	return Evaluation{Score: clampScore(parsed.Aura), Rationale: rationale}, nil
}

// EvaluateBatch оценивает пачку действий одним запросом. Ответ —
// JSON-массив с индексами; пропущенные индексы получают нулевую оценку.
func (g *GeminiScorer) EvaluateBatch(ctx context.Context, actions []string, examples []Example) ([]Evaluation, error) {
	if len(actions) == 0 {
		return nil, nil
	}
	prompt := buildBatchPrompt(actions, trimExamples(examples, g.maxExamples))

	text, err := g.generate(ctx, prompt, geminiBatchMaxOutputTokens)
	if err != nil {
		return nil, err
	}

	match := jsonArrayRe.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("Gemini вернул ответ без JSON-массива")
	}

	var parsed []struct {
		Indice     int    `json:"indice"`
		Aura       int64  `json:"aura"`
		Explicacao string `json:"explicacao"`
	}
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа Gemini: %w", err)
	}

	result := make([]Evaluation, len(actions))
	for i := range result {
		result[i] = Evaluation{Score: 0, Rationale: "Avaliação automática"}
	}
	for _, item := range parsed {
		if item.Indice < 0 || item.Indice >= len(actions) {
			continue
		}
		rationale := item.Explicacao
		if rationale == "" {
			rationale = "Avaliação automática"
		}
		result[item.Indice] = Evaluation{Score: clampScore(item.Aura), Rationale: rationale}
	}
	return result, nil
}

func (g *GeminiScorer) generate(ctx context.Context, prompt string, maxTokens int32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(geminiTemperature),
			MaxOutputTokens: maxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("ошибка запроса к Gemini: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Gemini вернул пустой ответ")
	}
	return text, nil
}

// trimExamples оставляет последние limit примеров (самые свежие исправления).
func trimExamples(examples []Example, limit int) []Example {
	if limit <= 0 || len(examples) <= limit {
		return examples
	}
	return examples[len(examples)-limit:]
}

// buildPrompt собирает промпт оценки одного действия.
// Текст промпта и формат ответа — контракт с моделью, менять осторожно.
func buildPrompt(action string, examples []Example) string {
	var b strings.Builder
	b.WriteString("Você é um avaliador de aura. Analise ações e atribua pontos de aura.\n")
	b.WriteString("Valores positivos = ações boas, negativos = ruins, zero = neutro.\n")
	b.WriteString("Responda APENAS com um número inteiro entre -100 e 100.\n\n")

	if len(examples) > 0 {
		b.WriteString("Exemplos de avaliações corretas:\n")
		for _, ex := range examples {
			fmt.Fprintf(&b, "'%s' = %d aura\n", ex.Action, ex.Score)
		}
	}

	fmt.Fprintf(&b, "\nAvalie esta ação: '%s'\n", action)
	b.WriteString(`Responda com JSON: {"aura": numero, "explicacao": "texto"}`)
	return b.String()
}

// buildBatchPrompt собирает промпт пакетной оценки.
func buildBatchPrompt(actions []string, examples []Example) string {
	var b strings.Builder
	b.WriteString("Você é um avaliador de aura. Analise ações e atribua pontos de aura.\n")
	b.WriteString("Valores positivos = ações boas, negativos = ruins, zero = neutro.\n")
	b.WriteString("Cada avaliação é um número inteiro entre -100 e 100.\n\n")

	if len(examples) > 0 {
		b.WriteString("Exemplos de avaliações corretas:\n")
		for _, ex := range examples {
			fmt.Fprintf(&b, "'%s' = %d aura\n", ex.Action, ex.Score)
		}
	}

	b.WriteString("\nAvalie estas ações:\n")
	for i, action := range actions {
		fmt.Fprintf(&b, "%d: '%s'\n", i, action)
	}
	b.WriteString(`Responda com JSON: [{"indice": numero, "aura": numero, "explicacao": "texto"}]`)
	return b.String()
}
