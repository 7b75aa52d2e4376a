package badges_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/aura-backend/internal/features/achievements"
	"serotonyl.ru/aura-backend/internal/features/badges"
	"serotonyl.ru/aura-backend/internal/features/oracle"
)

// fakeProvider отдаёт фиксированный набор значков.
type fakeProvider struct {
	badges []badges.ProviderBadge
	err    error
}

func (p *fakeProvider) Fetch(context.Context, string) ([]badges.ProviderBadge, error) {
	return p.badges, p.err
}

// fakeStore — хранилище значков в памяти.
type fakeStore struct {
	imported map[string]badges.ImportedBadge
	aura     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{imported: make(map[string]badges.ImportedBadge)}
}

func (s *fakeStore) ExistingSourceIDs(context.Context, string) (map[string]bool, error) {
	existing := make(map[string]bool, len(s.imported))
	for id := range s.imported {
		existing[id] = true
	}
	return existing, nil
}

func (s *fakeStore) InsertBatch(_ context.Context, _ string, batch []badges.ImportedBadge) (int, int64, error) {
	var inserted int
	var delta int64
	for _, b := range batch {
		if _, ok := s.imported[b.SourceID]; ok {
			continue
		}
		s.imported[b.SourceID] = b
		inserted++
		delta += b.Score
	}
	s.aura += delta
	return inserted, delta, nil
}

func (s *fakeStore) ListByUser(context.Context, string) ([]badges.ImportedBadge, error) {
	result := make([]badges.ImportedBadge, 0, len(s.imported))
	for _, b := range s.imported {
		result = append(result, b)
	}
	return result, nil
}

// flatOracle оценивает каждый текст одинаково.
type flatOracle struct {
	score int64
	calls [][]string
}

func (o *flatOracle) EvaluateBatch(_ context.Context, actions []string, _ []oracle.Example) []oracle.Evaluation {
	o.calls = append(o.calls, actions)
	result := make([]oracle.Evaluation, len(actions))
	for i := range result {
		result[i] = oracle.Evaluation{Score: o.score, Rationale: "flat"}
	}
	return result
}

// noopEvaluator — достижения в этих тестах не важны.
type noopEvaluator struct{ called bool }

func (e *noopEvaluator) Evaluate(context.Context, string) ([]achievements.Definition, error) {
	e.called = true
	return nil, nil
}

func TestImportDeduplicates(t *testing.T) {
	store := newFakeStore()
	store.imported["old"] = badges.ImportedBadge{SourceID: "old", Score: 15}

	provider := &fakeProvider{badges: []badges.ProviderBadge{
		{SourceID: "old", Title: "Старый значок"},
		{SourceID: "new-1", Title: "Новый значок"},
		{SourceID: "new-2", Title: "Ещё один"},
		{SourceID: "new-2", Title: "Дубликат в ответе провайдера"},
	}}

	evaluator := &noopEvaluator{}
	svc := badges.NewService(store, provider, &flatOracle{score: 25}, evaluator, 50)

	report, err := svc.Import(t.Context(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 4, report.Fetched)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, int64(50), report.AuraDelta)
	assert.True(t, evaluator.called)
}

// Повторный импорт того же набора ничего не начисляет.
func TestReimportIsNoop(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{badges: []badges.ProviderBadge{
		{SourceID: "b1", Title: "Первый"},
		{SourceID: "b2", Title: "Второй"},
	}}
	evaluator := &noopEvaluator{}
	svc := badges.NewService(store, provider, &flatOracle{score: 30}, evaluator, 50)

	first, err := svc.Import(t.Context(), "alice")
	require.NoError(t, err)
	require.Equal(t, 2, first.Imported)
	require.Equal(t, int64(60), store.aura)

	evaluator.called = false
	second, err := svc.Import(t.Context(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, int64(0), second.AuraDelta)
	assert.Equal(t, int64(60), store.aura)
	// Без новых значков достижения не переоцениваются
	assert.False(t, evaluator.called)
}

// Большой набор режется на пачки размером batchSize для оракула.
func TestImportBatching(t *testing.T) {
	store := newFakeStore()
	var fetched []badges.ProviderBadge
	for i := 0; i < 7; i++ {
		fetched = append(fetched, badges.ProviderBadge{
			SourceID: string(rune('a' + i)),
			Title:    "Значок",
		})
	}
	flat := &flatOracle{score: 5}
	svc := badges.NewService(store, &fakeProvider{badges: fetched}, flat, &noopEvaluator{}, 3)

	report, err := svc.Import(t.Context(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 7, report.Imported)
	require.Len(t, flat.calls, 3)
	assert.Len(t, flat.calls[0], 3)
	assert.Len(t, flat.calls[1], 3)
	assert.Len(t, flat.calls[2], 1)
}

func TestImportProviderError(t *testing.T) {
	svc := badges.NewService(newFakeStore(), &fakeProvider{err: assert.AnError}, &flatOracle{}, &noopEvaluator{}, 50)

	_, err := svc.Import(t.Context(), "alice")
	assert.Error(t, err)
}
