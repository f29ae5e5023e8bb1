package stats

import (
	"testing"
	"time"

	"github.com/pefman/armorsheet/internal/game"
	"github.com/pefman/armorsheet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wound(t *testing.T, trauma string, amount int, locs ...models.Location) game.Wound {
	t.Helper()
	w, err := game.WoundFromRecord(models.WoundRecord{Trauma: trauma, Amount: amount, Locations: locs})
	require.NoError(t, err)
	return w
}

func withClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestRecordAccumulates(t *testing.T) {
	t.Cleanup(Reset)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withClock(t, at)

	Record("c1", game.Resolution{
		Hits:      make([]game.HitRecord, 3),
		Wounds:    []game.Wound{wound(t, "piercing", 5, models.Torso), wound(t, "blunt", 7, models.Head)},
		DamageOut: 12,
		Ablated:   4,
	})
	Record("c1", game.Resolution{Hits: make([]game.HitRecord, 1)})

	got := Get("c1")
	assert.Equal(t, 2, got.Attacks)
	assert.Equal(t, 4, got.Hits)
	assert.Equal(t, 2, got.Wounds)
	assert.Equal(t, 12, got.DamageTaken)
	assert.Equal(t, 1, got.MortalWounds) // 7 on the head doubles to 14
	assert.Equal(t, 4, got.ArmorAblated)
	assert.Equal(t, at, got.LastAttack)

	assert.Equal(t, CharacterStats{}, Get("nobody"))
	Forget("c1")
	assert.Equal(t, CharacterStats{}, Get("c1"))
}

func TestWorstWoundToday(t *testing.T) {
	t.Cleanup(Reset)
	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	withClock(t, day)

	_, ok := WorstWoundToday()
	assert.False(t, ok)

	Record("c1", game.Resolution{Wounds: []game.Wound{wound(t, "piercing", 9, models.Torso)}})
	Record("c2", game.Resolution{Wounds: []game.Wound{wound(t, "piercing", 6, models.Head)}})
	Record("c3", game.Resolution{Wounds: []game.Wound{wound(t, "piercing", 3, models.Torso)}})

	worst, ok := WorstWoundToday()
	require.True(t, ok)
	assert.Equal(t, "c2", worst.CharacterID)
	assert.Equal(t, 12, worst.Wound.Effective)

	withClock(t, day.Add(24*time.Hour))
	_, ok = WorstWoundToday()
	assert.False(t, ok, "a new day starts empty")
}

func TestResetDaily(t *testing.T) {
	t.Cleanup(Reset)
	Record("c1", game.Resolution{Wounds: []game.Wound{wound(t, "burn", 2, models.LeftArm)}})
	ResetDaily()
	_, ok := WorstWoundToday()
	assert.False(t, ok)
	assert.Equal(t, 1, Get("c1").Attacks)
}

func TestForgetDropsWorstWound(t *testing.T) {
	t.Cleanup(Reset)
	withClock(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))

	Record("c1", game.Resolution{Wounds: []game.Wound{wound(t, "cutting", 9, models.Torso)}})
	Record("c2", game.Resolution{Wounds: []game.Wound{wound(t, "blunt", 3, models.Torso)}})

	Forget("c2")
	w, ok := WorstWoundToday()
	require.True(t, ok)
	assert.Equal(t, "c1", w.CharacterID)

	Forget("c1")
	_, ok = WorstWoundToday()
	assert.False(t, ok)

	Record("c3", game.Resolution{Wounds: []game.Wound{wound(t, "blunt", 2, models.Torso)}})
	w, ok = WorstWoundToday()
	require.True(t, ok)
	assert.Equal(t, "c3", w.CharacterID)
}
