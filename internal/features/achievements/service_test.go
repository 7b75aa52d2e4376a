package achievements

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore — хранилище достижений в памяти.
type fakeStore struct {
	snapshots map[string]*Snapshot
	// bonusLog фиксирует каждый вызов UnlockWithBonus с начислением
	bonusLog []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[string]*Snapshot)}
}

func (f *fakeStore) put(username string, s *Snapshot) {
	if s.Unlocked == nil {
		s.Unlocked = make(map[string]bool)
	}
	f.snapshots[username] = s
}

func (f *fakeStore) Snapshot(_ context.Context, username string) (*Snapshot, error) {
	s, ok := f.snapshots[username]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (f *fakeStore) UnlockWithBonus(_ context.Context, username, key string, bonus int64) (bool, error) {
	s := f.snapshots[username]
	if s.Unlocked[key] {
		return false, nil
	}
	s.Unlocked[key] = true
	s.AuraTotal += bonus
	f.bonusLog = append(f.bonusLog, bonus)
	return true, nil
}

func (f *fakeStore) UnlockedKeys(_ context.Context, username string) (map[string]bool, error) {
	s, ok := f.snapshots[username]
	if !ok {
		return map[string]bool{}, nil
	}
	return s.Unlocked, nil
}

func keysOf(defs []Definition) []string {
	keys := make([]string, 0, len(defs))
	for _, d := range defs {
		keys = append(keys, d.Key)
	}
	return keys
}

func TestEvaluateFirstAction(t *testing.T) {
	store := newFakeStore()
	store.put("alice", &Snapshot{AuraTotal: 45, EntryCount: 1, MaxEffective: 45, MinEffective: 45, UncorrectedCount: 1})

	newly, err := NewService(store).Evaluate(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"first-action"}, keysOf(newly))
	// Бонус +10 начислен
	assert.Equal(t, int64(55), store.snapshots["alice"].AuraTotal)
}

// Повторная оценка без изменений состояния ничего не разблокирует
// и не начисляет бонусы второй раз.
func TestEvaluateIdempotent(t *testing.T) {
	store := newFakeStore()
	store.put("alice", &Snapshot{AuraTotal: 45, EntryCount: 1, MaxEffective: 45, MinEffective: 45, UncorrectedCount: 1})
	svc := NewService(store)

	first, err := svc.Evaluate(t.Context(), "alice")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.Evaluate(t.Context(), "alice")
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, []int64{10}, store.bonusLog)
}

// Несколько достижений за одно событие разблокируются в порядке каталога.
func TestEvaluateStableOrder(t *testing.T) {
	store := newFakeStore()
	store.put("bob", &Snapshot{
		AuraTotal:        1200,
		EntryCount:       12,
		MaxEffective:     120,
		MinEffective:     -5,
		UncorrectedCount: 12,
	})

	newly, err := NewService(store).Evaluate(t.Context(), "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"first-action", "consistent", "first-star", "radiant-sun", "precise"}, keysOf(newly))
}

func TestEvaluateUnknownUserNoop(t *testing.T) {
	newly, err := NewService(newFakeStore()).Evaluate(t.Context(), "призрак")
	require.NoError(t, err)
	assert.Empty(t, newly)
}

func TestPredicates(t *testing.T) {
	defs := make(map[string]Definition, len(Catalog()))
	for _, d := range Catalog() {
		defs[d.Key] = d
	}

	tests := []struct {
		key  string
		snap Snapshot
		want bool
	}{
		{"first-action", Snapshot{EntryCount: 0}, false},
		{"first-action", Snapshot{EntryCount: 1}, true},
		{"consistent", Snapshot{EntryCount: 9}, false},
		{"consistent", Snapshot{EntryCount: 10}, true},
		{"unstoppable", Snapshot{EntryCount: 50}, true},
		{"centurion", Snapshot{EntryCount: 100}, true},
		{"first-star", Snapshot{EntryCount: 1, MaxEffective: 99}, false},
		{"first-star", Snapshot{EntryCount: 1, MaxEffective: 100}, true},
		{"supernova", Snapshot{EntryCount: 1, MaxEffective: 500}, true},
		// MaxEffective по умолчанию 0 — пустой журнал не даёт first-fall
		{"first-fall", Snapshot{EntryCount: 0, MinEffective: 0}, false},
		{"first-fall", Snapshot{EntryCount: 1, MinEffective: -100}, true},
		{"first-fall", Snapshot{EntryCount: 1, MinEffective: -99}, false},
		{"radiant-sun", Snapshot{AuraTotal: 999}, false},
		{"radiant-sun", Snapshot{AuraTotal: 1000}, true},
		{"galaxy", Snapshot{AuraTotal: 5000}, true},
		{"abyss", Snapshot{AuraTotal: 0}, false},
		{"abyss", Snapshot{AuraTotal: -1}, true},
		{"mentor", Snapshot{CorrectedCount: 4}, false},
		{"mentor", Snapshot{CorrectedCount: 5}, true},
		{"precise", Snapshot{UncorrectedCount: 9}, false},
		{"precise", Snapshot{UncorrectedCount: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			def, ok := defs[tt.key]
			require.True(t, ok)
			assert.Equal(t, tt.want, def.Qualifies(&tt.snap))
		})
	}
}

func TestCatalogShape(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, 12)

	// "precise" оценивается последним
	assert.Equal(t, "precise", defs[len(defs)-1].Key)

	seen := make(map[string]bool)
	for _, d := range defs {
		assert.False(t, seen[d.Key], "дубликат ключа %s", d.Key)
		seen[d.Key] = true
		assert.NotNil(t, d.Qualifies)
	}
}
