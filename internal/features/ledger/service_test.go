package ledger_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/aura-backend/internal/common"
	"serotonyl.ru/aura-backend/internal/features/achievements"
	"serotonyl.ru/aura-backend/internal/features/ledger"
	"serotonyl.ru/aura-backend/internal/features/oracle"
	"serotonyl.ru/aura-backend/internal/features/users"
)

// world — хранилище в памяти, моделирующее семантику репозиториев
// журнала и достижений над общим состоянием одного пользователя.
type world struct {
	username string
	aura     int64
	entries  map[int64]*ledger.Entry
	nextID   int64
	unlocked map[string]bool
}

func newWorld(username string) *world {
	return &world{
		username: username,
		entries:  make(map[int64]*ledger.Entry),
		nextID:   1,
		unlocked: make(map[string]bool),
	}
}

// --- ledger.Store ---

func (w *world) Record(_ context.Context, e *ledger.Entry) (int64, string, error) {
	e.ID = w.nextID
	w.nextID++
	e.CreatedAt = time.Now()
	w.entries[e.ID] = e
	w.aura += e.ScoreOriginal
	return w.aura, users.LeagueFor(w.aura), nil
}

func (w *world) Correct(_ context.Context, id, newScore int64, note string) (*ledger.Entry, int64, string, error) {
	e, ok := w.entries[id]
	if !ok {
		return nil, 0, "", common.ErrEntryNotFound
	}
	w.aura += newScore - e.EffectiveScore()
	e.ScoreCorrected = &newScore
	e.CorrectionNote = &note
	return e, w.aura, users.LeagueFor(w.aura), nil
}

func (w *world) Delete(_ context.Context, id int64) (bool, string, error) {
	e, ok := w.entries[id]
	if !ok {
		return false, "", nil
	}
	w.aura -= e.EffectiveScore()
	delete(w.entries, id)
	return true, e.Username, nil
}

func (w *world) byUserChronological(username string) []*ledger.Entry {
	var result []*ledger.Entry
	for _, e := range w.entries {
		if e.Username == username {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (w *world) HistoryByUser(_ context.Context, username string) ([]*ledger.Entry, error) {
	chrono := w.byUserChronological(username)
	result := make([]*ledger.Entry, 0, len(chrono))
	for i := len(chrono) - 1; i >= 0; i-- {
		result = append(result, chrono[i])
	}
	return result, nil
}

func (w *world) Recent(_ context.Context, limit int) ([]*ledger.Entry, error) {
	return w.byUserChronological(w.username), nil
}

func (w *world) CorrectedExamples(_ context.Context, username string) ([]oracle.Example, error) {
	var result []oracle.Example
	for _, e := range w.byUserChronological(username) {
		if e.ScoreCorrected != nil {
			result = append(result, oracle.Example{Action: e.Action, Score: *e.ScoreCorrected})
		}
	}
	return result, nil
}

func (w *world) Counts(_ context.Context) (int64, int64, error) {
	var total, corrected int64
	for _, e := range w.entries {
		total++
		if e.ScoreCorrected != nil {
			corrected++
		}
	}
	return total, corrected, nil
}

// --- achievements.Store ---

func (w *world) Snapshot(_ context.Context, username string) (*achievements.Snapshot, error) {
	if username != w.username {
		return nil, nil
	}
	s := &achievements.Snapshot{AuraTotal: w.aura, Unlocked: w.unlocked}
	for _, e := range w.entries {
		s.EntryCount++
		eff := e.EffectiveScore()
		if s.EntryCount == 1 || eff > s.MaxEffective {
			s.MaxEffective = eff
		}
		if s.EntryCount == 1 || eff < s.MinEffective {
			s.MinEffective = eff
		}
		if e.ScoreCorrected != nil {
			s.CorrectedCount++
		} else {
			s.UncorrectedCount++
		}
	}
	return s, nil
}

func (w *world) UnlockWithBonus(_ context.Context, username, key string, bonus int64) (bool, error) {
	if w.unlocked[key] {
		return false, nil
	}
	w.unlocked[key] = true
	w.aura += bonus
	return true, nil
}

func (w *world) UnlockedKeys(_ context.Context, username string) (map[string]bool, error) {
	return w.unlocked, nil
}

// Инвариант агрегата: аура равна сумме действующих оценок журнала
// и бонусов разблокированных достижений.
func (w *world) checkInvariant(t *testing.T) {
	t.Helper()
	var sum int64
	for _, e := range w.entries {
		sum += e.EffectiveScore()
	}
	for _, def := range achievements.Catalog() {
		if w.unlocked[def.Key] {
			sum += def.Bonus
		}
	}
	require.Equal(t, sum, w.aura, "инвариант агрегата нарушен")
}

// removeUser повторяет семантику users.Repository.Delete: журнал действий
// и разблокировки уходят вместе с пользователем.
func (w *world) removeUser() {
	for id, e := range w.entries {
		if e.Username == w.username {
			delete(w.entries, id)
		}
	}
	w.unlocked = make(map[string]bool)
	w.aura = 0
}

// scriptedOracle выдаёт заранее заданные оценки по очереди.
type scriptedOracle struct {
	scores []int64
	calls  int
}

func (o *scriptedOracle) Evaluate(_ context.Context, action string, _ []oracle.Example) oracle.Evaluation {
	score := o.scores[o.calls]
	o.calls++
	return oracle.Evaluation{Score: score, Rationale: "scripted"}
}

func newTestService(w *world, scores ...int64) (*ledger.Service, *scriptedOracle) {
	o := &scriptedOracle{scores: scores}
	return ledger.NewService(w, o, achievements.NewService(w)), o
}

func TestSubmitUnlocksFirstAction(t *testing.T) {
	w := newWorld("alice")
	svc, _ := newTestService(w, 45)

	res, err := svc.Submit(t.Context(), "alice", "ajudei minha vizinha")
	require.NoError(t, err)

	assert.Equal(t, int64(45), res.Entry.ScoreOriginal)
	require.Len(t, res.NewlyUnlocked, 1)
	assert.Equal(t, "first-action", res.NewlyUnlocked[0].Key)

	// 45 за действие + 10 бонуса
	assert.Equal(t, int64(55), w.aura)
	assert.Equal(t, users.LeagueBronze, users.LeagueFor(w.aura))
	w.checkInvariant(t)
}

func TestSubmitEmptyAction(t *testing.T) {
	w := newWorld("alice")
	svc, o := newTestService(w)

	_, err := svc.Submit(t.Context(), "alice", "   ")
	assert.ErrorIs(t, err, common.ErrEmptyAction)
	assert.Zero(t, o.calls)
	assert.Empty(t, w.entries)
}

// Набор 1000 ауры разблокирует radiant-sun, и бонус двигает лигу.
func TestSubmitCrossesRadiantSun(t *testing.T) {
	w := newWorld("bob")
	// Предыстория: одно действие на 590 и три уже разблокированных
	// достижения (10 + 50 + 300 бонусов) дают ровно 950 ауры.
	w.entries[1] = &ledger.Entry{ID: 1, Username: "bob", Action: "épico", ScoreOriginal: 590}
	w.nextID = 2
	w.unlocked["first-action"] = true
	w.unlocked["first-star"] = true
	w.unlocked["supernova"] = true
	w.aura = 950
	w.checkInvariant(t)

	svc, _ := newTestService(w, 60)
	res, err := svc.Submit(t.Context(), "bob", "fiz algo incrível")
	require.NoError(t, err)

	// 950 + 60 = 1010 → radiant-sun (+100) → 1110, лига Gold
	assert.Equal(t, []string{"radiant-sun"}, keysOf(res.NewlyUnlocked))
	assert.Equal(t, int64(1110), w.aura)
	assert.Equal(t, users.LeagueGold, users.LeagueFor(w.aura))
	w.checkInvariant(t)
}

func keysOf(defs []achievements.Definition) []string {
	keys := make([]string, 0, len(defs))
	for _, d := range defs {
		keys = append(keys, d.Key)
	}
	return keys
}

// Исправление на d меняет ауру ровно на d относительно действующей оценки.
func TestCorrectionDelta(t *testing.T) {
	w := newWorld("alice")
	svc, _ := newTestService(w, 30)

	res, err := svc.Submit(t.Context(), "alice", "fiz um favor")
	require.NoError(t, err)
	auraAfterSubmit := w.aura // 30 + 10 бонуса

	corrected, err := svc.Correct(t.Context(), res.Entry.ID, 80, "заниженная оценка")
	require.NoError(t, err)
	assert.Equal(t, auraAfterSubmit+50, w.aura)
	assert.Equal(t, int64(80), corrected.Entry.EffectiveScore())
	w.checkInvariant(t)

	// Повторное исправление считает дельту от нового действующего значения
	_, err = svc.Correct(t.Context(), res.Entry.ID, 70, "")
	require.NoError(t, err)
	assert.Equal(t, auraAfterSubmit+40, w.aura)
	w.checkInvariant(t)
}

func TestCorrectionUnknownEntry(t *testing.T) {
	w := newWorld("alice")
	svc, _ := newTestService(w)

	_, err := svc.Correct(t.Context(), 404, 10, "")
	assert.ErrorIs(t, err, common.ErrEntryNotFound)
}

// Удаление вычитает действующую оценку, но достижения остаются.
func TestDeleteKeepsUnlocks(t *testing.T) {
	w := newWorld("alice")
	svc, _ := newTestService(w, 45)

	res, err := svc.Submit(t.Context(), "alice", "ajudei")
	require.NoError(t, err)
	require.True(t, w.unlocked["first-action"])

	require.NoError(t, svc.Delete(t.Context(), res.Entry.ID))

	// Остался только бонус first-action
	assert.Equal(t, int64(10), w.aura)
	assert.True(t, w.unlocked["first-action"])
	w.checkInvariant(t)
}

func TestDeleteUnknownEntryNoop(t *testing.T) {
	w := newWorld("alice")
	svc, _ := newTestService(w, 45)

	_, err := svc.Submit(t.Context(), "alice", "ajudei")
	require.NoError(t, err)
	before := w.aura

	require.NoError(t, svc.Delete(t.Context(), 12345))
	assert.Equal(t, before, w.aura)
}

// Имя удалённого пользователя можно занять заново: новый владелец
// начинает с чистого журнала и сам разблокирует свои достижения.
func TestReregisteredUserStartsClean(t *testing.T) {
	w := newWorld("alice")
	svc, _ := newTestService(w, 45, 30)

	_, err := svc.Submit(t.Context(), "alice", "ajudei minha vizinha")
	require.NoError(t, err)
	require.True(t, w.unlocked["first-action"])

	w.removeUser()

	history, err := svc.History(t.Context(), "alice")
	require.NoError(t, err)
	assert.Empty(t, history, "чужой журнал не должен наследоваться")

	res, err := svc.Submit(t.Context(), "alice", "estudei para a prova")
	require.NoError(t, err)
	assert.Equal(t, []string{"first-action"}, keysOf(res.NewlyUnlocked))

	// 30 за действие + 10 бонуса, без следов прежнего владельца
	assert.Equal(t, int64(40), w.aura)
	w.checkInvariant(t)
}

// Исправленные записи попадают в промпт оракула как эталоны.
func TestSubmitPassesCorrectedExamples(t *testing.T) {
	w := newWorld("alice")
	o := &capturingOracle{}
	svc := ledger.NewService(w, o, achievements.NewService(w))

	res, err := svc.Submit(t.Context(), "alice", "estudei")
	require.NoError(t, err)
	assert.Empty(t, o.lastExamples)

	_, err = svc.Correct(t.Context(), res.Entry.ID, 60, "")
	require.NoError(t, err)

	_, err = svc.Submit(t.Context(), "alice", "trabalhei")
	require.NoError(t, err)
	require.Len(t, o.lastExamples, 1)
	assert.Equal(t, oracle.Example{Action: "estudei", Score: 60}, o.lastExamples[0])
}

type capturingOracle struct {
	lastExamples []oracle.Example
}

func (o *capturingOracle) Evaluate(_ context.Context, _ string, examples []oracle.Example) oracle.Evaluation {
	o.lastExamples = examples
	return oracle.Evaluation{Score: 10, Rationale: "captured"}
}
