package models

import (
	"errors"
	"fmt"
	"strings"
)

// ========================= Enumerations =========================
// Zero values are "unspecified" so that missing fields in decoded records are caught by validation.

var (
	ErrUnknownLocation  = errors.New("unknown body location")
	ErrUnknownZone      = errors.New("unknown armor zone")
	ErrUnknownArmorType = errors.New("unknown armor type")
)

// Location is a targetable body location.
type Location int

const (
	LocationUnspecified Location = iota
	Head
	Torso
	LeftArm
	RightArm
	LeftLeg
	RightLeg
)

// AllLocations lists every body location, in random-hit draw order.
var AllLocations = []Location{Head, Torso, LeftArm, RightArm, LeftLeg, RightLeg}

var locationNames = map[Location]string{
	Head:     "head",
	Torso:    "torso",
	LeftArm:  "left_arm",
	RightArm: "right_arm",
	LeftLeg:  "left_leg",
	RightLeg: "right_leg",
}

func (l Location) String() string {
	if s, ok := locationNames[l]; ok {
		return s
	}
	return "unspecified"
}

func (l Location) Valid() bool {
	_, ok := locationNames[l]
	return ok
}

// ParseLocation accepts "left_arm", "LeftArm", "left arm" and similar spellings.
func ParseLocation(s string) (Location, error) {
	key := normalize(s)
	for l, name := range locationNames {
		if normalize(name) == key {
			return l, nil
		}
	}
	return LocationUnspecified, fmt.Errorf("%w: %q", ErrUnknownLocation, s)
}

func (l Location) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLocation, int(l))
	}
	return []byte(l.String()), nil
}

func (l *Location) UnmarshalText(b []byte) error {
	v, err := ParseLocation(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Zone is the body-depth of a piece of armor, ordered innermost to outermost.
type Zone int

const (
	ZoneUnspecified Zone = iota
	Subdermal
	SkinWeave
	BodyPlating
	External
)

// Zones lists armor zones from the innermost outwards.
var Zones = []Zone{Subdermal, SkinWeave, BodyPlating, External}

var zoneNames = map[Zone]string{
	Subdermal:   "subdermal",
	SkinWeave:   "skin_weave",
	BodyPlating: "body_plating",
	External:    "external",
}

func (z Zone) String() string {
	if s, ok := zoneNames[z]; ok {
		return s
	}
	return "unspecified"
}

func (z Zone) Valid() bool {
	_, ok := zoneNames[z]
	return ok
}

// EncumbersWhenLayered reports whether stacking this zone over or under another
// encumbering layer costs mobility. Skin weave never does.
func (z Zone) EncumbersWhenLayered() bool {
	return z.Valid() && z != SkinWeave
}

func ParseZone(s string) (Zone, error) {
	key := normalize(s)
	for z, name := range zoneNames {
		if normalize(name) == key {
			return z, nil
		}
	}
	return ZoneUnspecified, fmt.Errorf("%w: %q", ErrUnknownZone, s)
}

func (z Zone) MarshalText() ([]byte, error) {
	if !z.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownZone, int(z))
	}
	return []byte(z.String()), nil
}

func (z *Zone) UnmarshalText(b []byte) error {
	v, err := ParseZone(string(b))
	if err != nil {
		return err
	}
	*z = v
	return nil
}

// ArmorType classifies rigidity.
type ArmorType int

const (
	ArmorTypeUnspecified ArmorType = iota
	Hard
	Soft
)

func (a ArmorType) String() string {
	switch a {
	case Hard:
		return "hard"
	case Soft:
		return "soft"
	default:
		return "unspecified"
	}
}

func (a ArmorType) Valid() bool { return a == Hard || a == Soft }

func ParseArmorType(s string) (ArmorType, error) {
	switch normalize(s) {
	case "hard":
		return Hard, nil
	case "soft":
		return Soft, nil
	}
	return ArmorTypeUnspecified, fmt.Errorf("%w: %q", ErrUnknownArmorType, s)
}

func (a ArmorType) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownArmorType, int(a))
	}
	return []byte(a.String()), nil
}

func (a *ArmorType) UnmarshalText(b []byte) error {
	v, err := ParseArmorType(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// ========================= Records =========================
// Shapes exchanged with the catalog, storage and HTTP layers.

// ArmorRecord describes one piece of armor. ID is assigned on equip when empty.
type ArmorRecord struct {
	ID        string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string     `json:"name" yaml:"name"`
	Type      ArmorType  `json:"type" yaml:"type"`
	Zone      Zone       `json:"zone" yaml:"zone"`
	SPS       int        `json:"sps" yaml:"sps"`
	EV        int        `json:"ev" yaml:"ev"`
	Locations []Location `json:"locations" yaml:"locations"`
	Damage    int        `json:"damage,omitempty" yaml:"damage,omitempty"`
}

// WoundRecord is a wound as stored and displayed. Effective, Mortal and Fatal are derived.
type WoundRecord struct {
	ID        string     `json:"id"`
	Trauma    string     `json:"trauma"`
	Amount    int        `json:"amount"`
	Locations []Location `json:"locations"`
	Portions  []int      `json:"portions,omitempty"`
	Effective int        `json:"effective"`
	Mortal    bool       `json:"mortal"`
	Fatal     bool       `json:"fatal"`
}

type CharacterRecord struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Armor  []ArmorRecord `json:"armor"`
	Wounds []WoundRecord `json:"wounds"`
}

// AttackRecord carries user-entered attack parameters.
// A nil Location with an empty Spread means a random location per hit.
type AttackRecord struct {
	Dice       string     `json:"dice"`
	Hits       int        `json:"hits"`
	DamageType string     `json:"damage_type"`
	Location   *Location  `json:"location,omitempty"`
	Spread     []Location `json:"spread,omitempty"`
	Cover      int        `json:"cover,omitempty"`
	Seed       *int64     `json:"seed,omitempty"`
}
