package game

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pefman/armorsheet/internal/models"
)

// Randomizer is the randomness a resolution consumes. *rand.Rand satisfies it.
type Randomizer interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Resolver turns incoming damage into wounds. Each resolver should own its Randomizer;
// share one across goroutines only behind a lock.
type Resolver struct {
	rng Randomizer
}

func NewResolver(rng Randomizer) *Resolver { return &Resolver{rng: rng} }

// Resolve mitigates every hit through the stack and returns the resulting wounds.
// Armor hit by a damage type that always damages armor is ablated in place.
func (r *Resolver) Resolve(in IncomingDamage, stack *Stack) []Wound {
	return r.ResolveDetailed(in, stack).Wounds
}

// ResolveDetailed is Resolve with a per-hit breakdown and a step log.
// A nil stack means no armor is worn.
func (r *Resolver) ResolveDetailed(in IncomingDamage, stack *Stack) Resolution {
	rule := RuleFor(in.Type())
	if stack == nil {
		stack = NewStack()
	}
	res := Resolution{DamageType: in.Type().String(), Wounds: []Wound{}}
	logs := []string{fmt.Sprintf("Attack: %s x%d %s", in.Dice(), in.Hits(), in.Type())}
	if rule.IgnoresArmor {
		logs = append(logs, fmt.Sprintf("%s ignores armor and cover", in.Type()))
	} else if in.Cover() > 0 {
		logs = append(logs, fmt.Sprintf("Cover adds %d protection", in.Cover()))
	}
	if rule.AlwaysDamagesArmor {
		logs = append(logs, fmt.Sprintf("%s damages armor on every hit", in.Type()))
	}

	for i, roll := range in.Rolls() {
		locs := r.hitLocations(in)
		hit := HitRecord{Roll: roll, Locations: locs}
		if rule.IgnoresArmor {
			hit.Leftover = roll
		} else {
			hit.Protection = weakestProtection(stack, locs)
			hit.Cover = in.Cover()
			hit.Leftover = max(roll-hit.Protection-hit.Cover, 0)
		}
		if rule.AlwaysDamagesArmor {
			hit.Ablated = ablate(stack, locs, roll)
			res.Ablated += hit.Ablated
		}
		hit.Adjusted = max(rule.Adjust(hit.Leftover), 0)

		wounds := r.apportion(hit.Adjusted, rule.Traumas, locs)
		hit.Wounds = len(wounds)
		res.DamageIn += hit.Adjusted
		for _, w := range wounds {
			res.DamageOut += w.Amount()
		}
		res.Wounds = append(res.Wounds, wounds...)
		res.Hits = append(res.Hits, hit)
		logs = append(logs, hitLog(i+1, hit))
	}

	logs = append(logs, fmt.Sprintf("Total: %d damage through, %d wound(s)", res.DamageOut, len(res.Wounds)))
	res.Logs = logs
	return res
}

func (r *Resolver) hitLocations(in IncomingDamage) []models.Location {
	if spread := in.Spread(); len(spread) > 0 {
		return spread
	}
	if t, ok := in.Target(); ok {
		return []models.Location{t}
	}
	return []models.Location{models.AllLocations[r.rng.Intn(len(models.AllLocations))]}
}

// apportion splits one hit's damage across its trauma types and, for spread hits, across
// locations. Remainders always land on the last trauma and the last (shuffled) location.
func (r *Resolver) apportion(amount int, traumas []TraumaType, locs []models.Location) []Wound {
	if amount <= 0 {
		return nil
	}
	var out []Wound
	for i, part := range split(amount, len(traumas)) {
		if part == 0 {
			continue
		}
		trauma := traumas[i]
		if len(locs) == 1 {
			out = append(out, newWound(trauma, part, locs, nil))
			continue
		}
		shuffled := slices.Clone(locs)
		r.rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		portions := split(part, len(shuffled))
		total := 0
		for j, loc := range shuffled {
			if loc == models.Head && !trauma.headExempt() {
				portions[j] *= HeadMultiplier
			}
			total += portions[j]
		}
		out = append(out, newWound(trauma, total, shuffled, portions))
	}
	return out
}

// split divides amount into n even parts with the remainder added to the last part.
func split(amount, n int) []int {
	parts := make([]int, n)
	if n == 0 {
		return parts
	}
	for i := range parts {
		parts[i] = amount / n
	}
	parts[n-1] += amount % n
	return parts
}

func weakestProtection(stack *Stack, locs []models.Location) int {
	weakest := -1
	for _, l := range locs {
		if p := stack.ProtectionFor(l); weakest < 0 || p < weakest {
			weakest = p
		}
	}
	return max(weakest, 0)
}

// ablate charges the hit to the outermost piece covering each hit location, once per piece.
func ablate(stack *Stack, locs []models.Location, amount int) int {
	var seen []*Piece
	applied := 0
	for _, l := range locs {
		p := stack.Outermost(l)
		if p == nil || slices.Contains(seen, p) {
			continue
		}
		seen = append(seen, p)
		applied += p.Ablate(amount)
	}
	return applied
}

func hitLog(n int, h HitRecord) string {
	names := make([]string, len(h.Locations))
	for i, l := range h.Locations {
		names[i] = l.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hit %d: %d -> %s", n, h.Roll, strings.Join(names, "+"))
	if h.Protection > 0 || h.Cover > 0 {
		fmt.Fprintf(&b, ", SP %d cover %d", h.Protection, h.Cover)
	}
	fmt.Fprintf(&b, ", %d through", h.Leftover)
	if h.Adjusted != h.Leftover {
		fmt.Fprintf(&b, " (adjusted %d)", h.Adjusted)
	}
	if h.Ablated > 0 {
		fmt.Fprintf(&b, ", armor -%d", h.Ablated)
	}
	if h.Wounds == 0 {
		b.WriteString(", stopped")
	}
	return b.String()
}
