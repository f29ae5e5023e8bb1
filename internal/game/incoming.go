package game

import (
	"fmt"
	"slices"

	"github.com/pefman/armorsheet/internal/engine"
	"github.com/pefman/armorsheet/internal/models"
)

// Attack is the unrolled description of an attack.
// Target and Spread are both optional; a Spread wins over a Target.
type Attack struct {
	Dice   engine.DiceRoll
	Hits   int
	Type   DamageType
	Target *models.Location
	Spread []models.Location
	Cover  int
}

// ParseAttack turns user-entered attack parameters into an Attack.
func ParseAttack(rec models.AttackRecord) (Attack, error) {
	roll, err := engine.ParseDiceRoll(rec.Dice)
	if err != nil {
		return Attack{}, err
	}
	kind, err := ParseDamageType(rec.DamageType)
	if err != nil {
		return Attack{}, err
	}
	if rec.Location != nil && !rec.Location.Valid() {
		return Attack{}, fmt.Errorf("%w: %d", models.ErrUnknownLocation, int(*rec.Location))
	}
	return Attack{
		Dice:   roll,
		Hits:   rec.Hits,
		Type:   kind,
		Target: rec.Location,
		Spread: rec.Spread,
		Cover:  rec.Cover,
	}, nil
}

// IncomingDamage is one resolved attack. Hits are rolled once, at construction, and frozen.
type IncomingDamage struct {
	dice   engine.DiceRoll
	kind   DamageType
	target *models.Location
	spread []models.Location
	cover  int
	rolls  []int
}

// NewIncomingDamage rolls every hit of the attack. A non-positive hit count rolls nothing.
func NewIncomingDamage(r engine.Source, a Attack) IncomingDamage {
	in := IncomingDamage{
		dice:  a.Dice,
		kind:  a.Type,
		cover: max(a.Cover, 0),
	}
	if a.Target != nil {
		t := *a.Target
		in.target = &t
	}
	for _, l := range a.Spread {
		if l.Valid() && !slices.Contains(in.spread, l) {
			in.spread = append(in.spread, l)
		}
	}
	if len(in.spread) == 1 {
		t := in.spread[0]
		in.target, in.spread = &t, nil
	}
	for i := 0; i < a.Hits; i++ {
		in.rolls = append(in.rolls, a.Dice.Resolve(r))
	}
	return in
}

func (in IncomingDamage) Dice() engine.DiceRoll { return in.dice }
func (in IncomingDamage) Type() DamageType      { return in.kind }
func (in IncomingDamage) Cover() int            { return in.cover }
func (in IncomingDamage) Hits() int             { return len(in.rolls) }

// Target returns the fixed location of every hit, if any.
func (in IncomingDamage) Target() (models.Location, bool) {
	if in.target == nil {
		return models.LocationUnspecified, false
	}
	return *in.target, true
}

// Spread returns the locations every hit is spread over, if any.
func (in IncomingDamage) Spread() []models.Location { return slices.Clone(in.spread) }

// Rolls returns the frozen per-hit damage rolls.
func (in IncomingDamage) Rolls() []int { return slices.Clone(in.rolls) }

// Total is the sum of every hit roll.
func (in IncomingDamage) Total() int {
	total := 0
	for _, r := range in.rolls {
		total += r
	}
	return total
}
