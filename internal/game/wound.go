package game

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/pefman/armorsheet/internal/models"
)

const (
	// HeadMultiplier scales damage landing on the head.
	HeadMultiplier = 2
	// MortalThreshold is the effective damage at which a wound becomes mortal.
	MortalThreshold = 13
)

// Wound is one damage event. Two wounds with the same fields are still different wounds;
// identity is carried by ID.
type Wound struct {
	id        string
	trauma    TraumaType
	amount    int
	locations []models.Location
	// portions holds the per-location share of amount for multi-location wounds,
	// head multiplier already applied.
	portions []int
}

func newWound(trauma TraumaType, amount int, locations []models.Location, portions []int) Wound {
	return Wound{
		id:        uuid.NewString(),
		trauma:    trauma,
		amount:    max(amount, 0),
		locations: slices.Clone(locations),
		portions:  slices.Clone(portions),
	}
}

// WoundFromRecord restores a stored wound, keeping its ID.
func WoundFromRecord(rec models.WoundRecord) (Wound, error) {
	trauma, err := ParseTraumaType(rec.Trauma)
	if err != nil {
		return Wound{}, err
	}
	if len(rec.Locations) == 0 {
		return Wound{}, fmt.Errorf("wound %s has no location", rec.ID)
	}
	if len(rec.Portions) > 0 && len(rec.Portions) != len(rec.Locations) {
		return Wound{}, fmt.Errorf("wound %s has %d portions for %d locations", rec.ID, len(rec.Portions), len(rec.Locations))
	}
	w := newWound(trauma, rec.Amount, rec.Locations, rec.Portions)
	if rec.ID != "" {
		w.id = rec.ID
	}
	return w, nil
}

func (w Wound) ID() string                   { return w.id }
func (w Wound) Trauma() TraumaType           { return w.trauma }
func (w Wound) Amount() int                  { return w.amount }
func (w Wound) Locations() []models.Location { return slices.Clone(w.locations) }
func (w Wound) Portions() []int              { return slices.Clone(w.portions) }
func (w Wound) IsMultiLocation() bool        { return len(w.locations) > 1 }

func (w Wound) Includes(loc models.Location) bool { return slices.Contains(w.locations, loc) }

// EffectiveDamage applies the head multiplier to single-location head wounds.
// Multi-location wounds had it applied per location when they were distributed.
func (w Wound) EffectiveDamage() int {
	if len(w.locations) == 1 && w.locations[0] == models.Head && !w.trauma.headExempt() {
		return w.amount * HeadMultiplier
	}
	return w.amount
}

// IsMortal reports whether the wound calls for a check against incapacitation.
// Cyberware damage is never mortal.
func (w Wound) IsMortal() bool {
	if w.trauma.headExempt() {
		return false
	}
	return w.EffectiveDamage() >= MortalThreshold
}

// IsFatal reports a mortal wound that involves the head.
func (w Wound) IsFatal() bool {
	return w.IsMortal() && w.Includes(models.Head)
}

// WithAmount returns the same wound (same ID) carrying a new amount, floored at zero.
// Portions of a multi-location wound are trimmed from the last location backwards.
func (w Wound) WithAmount(n int) Wound {
	out := w
	out.amount = max(n, 0)
	out.locations = slices.Clone(w.locations)
	out.portions = slices.Clone(w.portions)
	excess := 0
	for _, p := range out.portions {
		excess += p
	}
	excess -= out.amount
	for i := len(out.portions) - 1; i >= 0 && excess > 0; i-- {
		cut := min(out.portions[i], excess)
		out.portions[i] -= cut
		excess -= cut
	}
	return out
}

func (w Wound) Record() models.WoundRecord {
	return models.WoundRecord{
		ID:        w.id,
		Trauma:    w.trauma.String(),
		Amount:    w.amount,
		Locations: w.Locations(),
		Portions:  w.Portions(),
		Effective: w.EffectiveDamage(),
		Mortal:    w.IsMortal(),
		Fatal:     w.IsFatal(),
	}
}

func (w Wound) MarshalJSON() ([]byte, error) { return json.Marshal(w.Record()) }

// Ledger tracks the wounds of one character. It is not safe for concurrent use.
type Ledger struct {
	wounds []Wound
}

func NewLedger(wounds ...Wound) *Ledger {
	return &Ledger{wounds: slices.Clone(wounds)}
}

func (l *Ledger) Add(ws ...Wound) { l.wounds = append(l.wounds, ws...) }

func (l *Ledger) Get(id string) (Wound, bool) {
	i := l.index(id)
	if i < 0 {
		return Wound{}, false
	}
	return l.wounds[i], true
}

// Remove deletes a wound by ID. Removing an unknown wound is a no-op.
func (l *Ledger) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.wounds = slices.Delete(l.wounds, i, i+1)
	return true
}

// Reduce lowers a wound's amount by n (floored at zero) and returns the new value.
func (l *Ledger) Reduce(id string, n int) (Wound, bool) {
	i := l.index(id)
	if i < 0 {
		return Wound{}, false
	}
	if n > 0 {
		l.wounds[i] = l.wounds[i].WithAmount(l.wounds[i].amount - n)
	}
	return l.wounds[i], true
}

func (l *Ledger) Wounds() []Wound { return slices.Clone(l.wounds) }
func (l *Ledger) Len() int        { return len(l.wounds) }

// Total is the summed effective damage of every wound.
func (l *Ledger) Total() int {
	total := 0
	for _, w := range l.wounds {
		total += w.EffectiveDamage()
	}
	return total
}

func (l *Ledger) Mortal() []Wound {
	var out []Wound
	for _, w := range l.wounds {
		if w.IsMortal() {
			out = append(out, w)
		}
	}
	return out
}

func (l *Ledger) HasFatal() bool {
	return slices.ContainsFunc(l.wounds, Wound.IsFatal)
}

func (l *Ledger) Records() []models.WoundRecord {
	out := make([]models.WoundRecord, 0, len(l.wounds))
	for _, w := range l.wounds {
		out = append(out, w.Record())
	}
	return out
}

func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.wounds, func(w Wound) bool { return w.id == id })
}
