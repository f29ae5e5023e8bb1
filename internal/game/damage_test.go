package game

import (
	"errors"
	"testing"

	"github.com/pefman/armorsheet/internal/engine"
	"github.com/pefman/armorsheet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryDamageTypeHasACompleteRule(t *testing.T) {
	for _, d := range DamageTypes {
		t.Run(d.String(), func(t *testing.T) {
			rule := RuleFor(d)
			assert.NotEmpty(t, rule.Traumas)
			assert.NotNil(t, rule.Adjust)
			parsed, err := ParseDamageType(d.String())
			require.NoError(t, err)
			assert.Equal(t, d, parsed)
		})
	}
}

func TestRuleForUnknownTypePanics(t *testing.T) {
	assert.Panics(t, func() { RuleFor(DamageUnspecified) })
	assert.Panics(t, func() { RuleFor(DamageType(99)) })
}

func TestParseDamageTypeSpellings(t *testing.T) {
	for _, s := range []string{"armor_piercing", "Armor-Piercing", "armorpiercing", "armor piercing"} {
		got, err := ParseDamageType(s)
		require.NoError(t, err, s)
		assert.Equal(t, DamageArmorPiercing, got)
	}
	_, err := ParseDamageType("sonic")
	assert.True(t, errors.Is(err, ErrUnknownDamageType))
}

func TestAdjustments(t *testing.T) {
	assert.Equal(t, 7, RuleFor(DamageBallistic).Adjust(7))
	assert.Equal(t, 3, RuleFor(DamageArmorPiercing).Adjust(7))
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []int{3, 3, 4}, split(10, 3))
	assert.Equal(t, []int{0, 1}, split(1, 2))
	assert.Equal(t, []int{9}, split(9, 1))
	assert.Empty(t, split(5, 0))
}

func TestIncomingDamageFreezesRolls(t *testing.T) {
	in := NewIncomingDamage(engine.NewRNG(3), Attack{Dice: engine.DiceRoll{Count: 2, Sides: 6}, Hits: 4, Type: DamageBallistic})
	first := in.Rolls()
	require.Len(t, first, 4)
	first[0] = -100
	assert.Equal(t, in.Rolls(), in.Rolls())
	assert.NotEqual(t, -100, in.Rolls()[0])
	for _, r := range in.Rolls() {
		assert.GreaterOrEqual(t, r, 2)
		assert.LessOrEqual(t, r, 12)
	}
	assert.Equal(t, 4, in.Hits())
}

func TestIncomingDamageNormalizesSpread(t *testing.T) {
	in := NewIncomingDamage(fakeRand{}, Attack{
		Dice: flat(1), Hits: 1, Type: DamageBlunt,
		Spread: []models.Location{models.Torso, models.Torso, models.LocationUnspecified},
	})
	assert.Empty(t, in.Spread())
	target, ok := in.Target()
	require.True(t, ok)
	assert.Equal(t, models.Torso, target)
}

func TestParseAttack(t *testing.T) {
	head := models.Head
	a, err := ParseAttack(models.AttackRecord{Dice: "3d6+1", Hits: 2, DamageType: "fire", Location: &head, Cover: 3})
	require.NoError(t, err)
	assert.Equal(t, DamageFire, a.Type)
	assert.Equal(t, 3, a.Dice.Count)
	assert.Equal(t, models.Head, *a.Target)

	_, err = ParseAttack(models.AttackRecord{Dice: "x", DamageType: "fire"})
	assert.True(t, errors.Is(err, engine.ErrInvalidDiceExpr))
	_, err = ParseAttack(models.AttackRecord{Dice: "1d6", DamageType: "laser"})
	assert.True(t, errors.Is(err, ErrUnknownDamageType))
}
