package game

import (
	"slices"

	"github.com/google/uuid"
	"github.com/pefman/armorsheet/internal/models"
)

// Piece is one equipped piece of armor. Everything but the accumulated damage is fixed
// at construction; damage is shared state mutated by resolution and repairs.
type Piece struct {
	ID   string
	Name string
	Type models.ArmorType
	Zone models.Zone
	SPS  int
	EV   int

	covers map[models.Location]bool
	damage int
}

// NewPiece builds a piece from a record, assigning an ID when the record has none.
// Negative ratings are treated as zero and stored damage is capped at the base protection.
func NewPiece(rec models.ArmorRecord) *Piece {
	p := &Piece{
		ID:     rec.ID,
		Name:   rec.Name,
		Type:   rec.Type,
		Zone:   rec.Zone,
		SPS:    max(rec.SPS, 0),
		EV:     max(rec.EV, 0),
		covers: make(map[models.Location]bool, len(rec.Locations)),
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for _, l := range rec.Locations {
		if l.Valid() {
			p.covers[l] = true
		}
	}
	p.damage = min(max(rec.Damage, 0), p.SPS)
	return p
}

func (p *Piece) Covers(loc models.Location) bool { return p.covers[loc] }

// Locations returns the covered locations in canonical order.
func (p *Piece) Locations() []models.Location {
	out := make([]models.Location, 0, len(p.covers))
	for _, l := range models.AllLocations {
		if p.covers[l] {
			out = append(out, l)
		}
	}
	return out
}

func (p *Piece) Damage() int { return p.damage }

// Protection is the current stopping power: base protection minus accumulated damage.
func (p *Piece) Protection() int { return max(p.SPS-p.damage, 0) }

// Ablate adds n points of damage, never pushing protection below zero.
// It returns the damage actually applied.
func (p *Piece) Ablate(n int) int {
	if n <= 0 {
		return 0
	}
	applied := min(n, p.SPS-p.damage)
	p.damage += applied
	return applied
}

// Repair removes up to n points of damage and returns the amount removed.
func (p *Piece) Repair(n int) int {
	if n <= 0 {
		return 0
	}
	removed := min(n, p.damage)
	p.damage -= removed
	return removed
}

func (p *Piece) overlaps(q *Piece) bool {
	for l := range p.covers {
		if q.covers[l] {
			return true
		}
	}
	return false
}

func (p *Piece) Record() models.ArmorRecord {
	return models.ArmorRecord{
		ID:        p.ID,
		Name:      p.Name,
		Type:      p.Type,
		Zone:      p.Zone,
		SPS:       p.SPS,
		EV:        p.EV,
		Locations: p.Locations(),
		Damage:    p.damage,
	}
}

// Stack owns the equipped pieces of one character and their layer order.
// It is not safe for concurrent use.
type Stack struct {
	pieces  []*Piece
	layers  []*Piece // index 0 is the innermost layer
	penalty int
}

func NewStack(pieces ...*Piece) *Stack {
	s := &Stack{}
	for _, p := range pieces {
		if p != nil {
			s.pieces = append(s.pieces, p)
		}
	}
	s.relayer()
	return s
}

// Equip adds a piece and rebuilds the layer order.
func (s *Stack) Equip(p *Piece) {
	if p == nil {
		return
	}
	s.pieces = append(s.pieces, p)
	s.relayer()
}

// Remove takes a piece off by identity. Removing a piece that is not worn is a no-op.
func (s *Stack) Remove(p *Piece) bool {
	i := slices.Index(s.pieces, p)
	if i < 0 || p == nil {
		return false
	}
	s.pieces = slices.Delete(s.pieces, i, i+1)
	s.relayer()
	return true
}

// Find returns the worn piece with the given ID, or nil.
func (s *Stack) Find(id string) *Piece {
	for _, p := range s.pieces {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Pieces returns the worn pieces in equip order.
func (s *Stack) Pieces() []*Piece { return slices.Clone(s.pieces) }

// Layers returns the pieces from the innermost layer outwards.
func (s *Stack) Layers() []*Piece { return slices.Clone(s.layers) }

// relayer orders pieces zone by zone (inside out) and, within a zone, by descending base
// protection. Ties keep equip order. The layering penalty is recomputed alongside.
func (s *Stack) relayer() {
	layers := make([]*Piece, 0, len(s.pieces))
	for _, z := range models.Zones {
		start := len(layers)
		for _, p := range s.pieces {
			if p.Zone == z {
				layers = append(layers, p)
			}
		}
		slices.SortStableFunc(layers[start:], func(a, b *Piece) int { return b.SPS - a.SPS })
	}
	s.layers = layers

	s.penalty = 0
	for i := 0; i+1 < len(layers); i++ {
		inner, outer := layers[i], layers[i+1]
		if inner.Zone.EncumbersWhenLayered() && outer.Zone.EncumbersWhenLayered() && inner.overlaps(outer) {
			s.penalty++
		}
	}
}

// ProtectionFor walks the layers inside out. The first covering layer sets the protection;
// each further layer yields max(running, layer) + |running - layer|, capped at the sum of the
// layers counted so far.
func (s *Stack) ProtectionFor(loc models.Location) int {
	protection, sum, covered := 0, 0, false
	for _, p := range s.layers {
		if !p.Covers(loc) {
			continue
		}
		v := p.Protection()
		sum += v
		if !covered {
			protection, covered = v, true
			continue
		}
		protection = min(max(protection, v)+abs(protection-v), sum)
	}
	return protection
}

// ProtectionMap is ProtectionFor for every body location.
func (s *Stack) ProtectionMap() map[models.Location]int {
	out := make(map[models.Location]int, len(models.AllLocations))
	for _, l := range models.AllLocations {
		out[l] = s.ProtectionFor(l)
	}
	return out
}

// Outermost returns the outermost piece covering loc, or nil.
func (s *Stack) Outermost(loc models.Location) *Piece {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if s.layers[i].Covers(loc) {
			return s.layers[i]
		}
	}
	return nil
}

// LayerPenalty counts adjacent encumbering layers that overlap.
func (s *Stack) LayerPenalty() int { return s.penalty }

// TotalEncumbrance is the summed EV of every piece plus the layering penalty.
func (s *Stack) TotalEncumbrance() int {
	total := s.penalty
	for _, p := range s.pieces {
		total += p.EV
	}
	return total
}

// Records snapshots the worn pieces in equip order.
func (s *Stack) Records() []models.ArmorRecord {
	out := make([]models.ArmorRecord, 0, len(s.pieces))
	for _, p := range s.pieces {
		out = append(out, p.Record())
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
