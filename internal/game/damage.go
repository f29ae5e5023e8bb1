package game

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDamageType is returned when parsing a damage type name fails.
var ErrUnknownDamageType = errors.New("unknown damage type")

// DamageType classifies the weapon effect of an attack.
type DamageType int

const (
	DamageUnspecified DamageType = iota
	DamageBallistic
	DamageArmorPiercing
	DamageBlunt
	DamageEdged
	DamageExplosive
	DamageFire
	DamageElectrical
	DamageEMP
	DamageUnarmed
)

// DamageTypes lists every damage type with a rule.
var DamageTypes = []DamageType{
	DamageBallistic, DamageArmorPiercing, DamageBlunt, DamageEdged, DamageExplosive,
	DamageFire, DamageElectrical, DamageEMP, DamageUnarmed,
}

var damageTypeNames = map[DamageType]string{
	DamageBallistic:     "ballistic",
	DamageArmorPiercing: "armor_piercing",
	DamageBlunt:         "blunt",
	DamageEdged:         "edged",
	DamageExplosive:     "explosive",
	DamageFire:          "fire",
	DamageElectrical:    "electrical",
	DamageEMP:           "emp",
	DamageUnarmed:       "unarmed",
}

func (d DamageType) String() string {
	if s, ok := damageTypeNames[d]; ok {
		return s
	}
	return fmt.Sprintf("damage(%d)", int(d))
}

func ParseDamageType(s string) (DamageType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for d, name := range damageTypeNames {
		if name == key || strings.ReplaceAll(name, "_", "") == key {
			return d, nil
		}
	}
	return DamageUnspecified, fmt.Errorf("%w: %q", ErrUnknownDamageType, s)
}

// TraumaType is the physiological category of a wound.
// The set is open: new categories only need a name and, if needed, a rule entry.
type TraumaType int

const (
	TraumaUnspecified TraumaType = iota
	TraumaLight
	TraumaBlunt
	TraumaPiercing
	TraumaCutting
	TraumaBurn
	TraumaShock
	TraumaCyberware
)

var traumaNames = map[TraumaType]string{
	TraumaLight:     "light",
	TraumaBlunt:     "blunt",
	TraumaPiercing:  "piercing",
	TraumaCutting:   "cutting",
	TraumaBurn:      "burn",
	TraumaShock:     "shock",
	TraumaCyberware: "cyberware",
}

func (t TraumaType) String() string {
	if s, ok := traumaNames[t]; ok {
		return s
	}
	return fmt.Sprintf("trauma(%d)", int(t))
}

func ParseTraumaType(s string) (TraumaType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for t, name := range traumaNames {
		if name == key {
			return t, nil
		}
	}
	return TraumaUnspecified, fmt.Errorf("unknown trauma type %q", s)
}

// headExempt reports whether wounds of this trauma skip the head multiplier and never count
// as mortal. Only cyberware damage does.
func (t TraumaType) headExempt() bool { return t == TraumaCyberware }

// AdjustFunc maps armor-mitigated damage to the amount that becomes wounds.
type AdjustFunc func(leftover int) int

func identity(n int) int { return n }

// halve rounds down.
func halve(n int) int { return n / 2 }

// DamageRule is how one damage type interacts with armor and which trauma it inflicts.
// Traumas is ordered: when split, the remainder goes to the last entry.
type DamageRule struct {
	IgnoresArmor       bool
	AlwaysDamagesArmor bool
	Adjust             AdjustFunc
	Traumas            []TraumaType
}

var damageRules = map[DamageType]DamageRule{
	DamageBallistic:     {Adjust: identity, Traumas: []TraumaType{TraumaPiercing}},
	DamageArmorPiercing: {IgnoresArmor: true, Adjust: halve, Traumas: []TraumaType{TraumaPiercing}},
	DamageBlunt:         {Adjust: identity, Traumas: []TraumaType{TraumaBlunt}},
	DamageEdged:         {Adjust: identity, Traumas: []TraumaType{TraumaCutting}},
	DamageExplosive:     {IgnoresArmor: true, AlwaysDamagesArmor: true, Adjust: identity, Traumas: []TraumaType{TraumaBlunt, TraumaPiercing}},
	DamageFire:          {AlwaysDamagesArmor: true, Adjust: identity, Traumas: []TraumaType{TraumaBurn}},
	DamageElectrical:    {Adjust: identity, Traumas: []TraumaType{TraumaShock}},
	DamageEMP:           {IgnoresArmor: true, Adjust: identity, Traumas: []TraumaType{TraumaCyberware}},
	DamageUnarmed:       {Adjust: identity, Traumas: []TraumaType{TraumaLight}},
}

// RuleFor returns the rule of a damage type. The table is fixed at build time, so a
// missing or malformed entry is a programming error and panics.
func RuleFor(d DamageType) DamageRule {
	rule, ok := damageRules[d]
	if !ok {
		panic(fmt.Sprintf("game: no damage rule for %s", d))
	}
	if len(rule.Traumas) == 0 || rule.Adjust == nil {
		panic(fmt.Sprintf("game: damage rule for %s is incomplete", d))
	}
	return rule
}
