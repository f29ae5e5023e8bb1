// Package engine holds the dice primitives shared by combat and save rolls.
package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

var diceRe = regexp.MustCompile(`(?i)^\s*(\d+)?\s*d\s*(\d+)(\s*([+\-])\s*(\d+))?\s*$`)

// ErrInvalidDiceExpr is returned when a dice expression cannot be parsed.
var ErrInvalidDiceExpr = errors.New("invalid dice expression")

// Source is the randomness consumed by rolls. *rand.Rand satisfies it.
type Source interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// Roll sums count independent draws of a die with the given sides.
// A non-positive count (or a die without sides) rolls nothing and returns 0.
func Roll(r Source, count, sides int) int {
	if count <= 0 || sides <= 0 {
		return 0
	}
	total := 0
	for i := 0; i < count; i++ {
		total += 1 + r.Intn(sides)
	}
	return total
}

// DiceRoll is a dice pool with an optional flat modifier, e.g. 3d6+2.
// Totals are floored at zero because damage can never be negative.
type DiceRoll struct {
	Count    int
	Sides    int
	Modifier *int
}

// Resolve rolls the pool and adds the modifier. Totals never go below zero.
func (d DiceRoll) Resolve(r Source) int {
	total := Roll(r, d.Count, d.Sides)
	if d.Modifier != nil {
		total += *d.Modifier
	}
	if total < 0 {
		total = 0
	}
	return total
}

// Min is the smallest total Resolve can produce.
func (d DiceRoll) Min() int {
	return clampTotal(max(d.Count, 0)*boolInt(d.Sides > 0) + d.mod())
}

// Max is the largest total Resolve can produce.
func (d DiceRoll) Max() int {
	return clampTotal(max(d.Count, 0)*max(d.Sides, 0) + d.mod())
}

func (d DiceRoll) mod() int {
	if d.Modifier == nil {
		return 0
	}
	return *d.Modifier
}

func (d DiceRoll) String() string {
	var b strings.Builder
	if d.Count > 0 && d.Sides > 0 {
		fmt.Fprintf(&b, "%dd%d", d.Count, d.Sides)
	}
	if d.Modifier != nil {
		m := *d.Modifier
		switch {
		case b.Len() == 0:
			fmt.Fprintf(&b, "%d", m)
		case m > 0:
			fmt.Fprintf(&b, "+%d", m)
		case m < 0:
			fmt.Fprintf(&b, "%d", m)
		}
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

// ParseDiceRoll supports: N, dS, NdS, NdS+K, NdS-K.
func ParseDiceRoll(expr string) (DiceRoll, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return DiceRoll{}, fmt.Errorf("%w: empty", ErrInvalidDiceExpr)
	}
	// flat value
	if n, err := strconv.Atoi(expr); err == nil {
		return DiceRoll{Modifier: &n}, nil
	}
	m := diceRe.FindStringSubmatch(expr)
	if m == nil {
		return DiceRoll{}, fmt.Errorf("%w: %q", ErrInvalidDiceExpr, expr)
	}
	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return DiceRoll{}, fmt.Errorf("%w: %q: %w", ErrInvalidDiceExpr, expr, err)
		}
		count = n
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return DiceRoll{}, fmt.Errorf("%w: %q: %w", ErrInvalidDiceExpr, expr, err)
	}
	if sides <= 0 {
		return DiceRoll{}, fmt.Errorf("%w: %q has no sides", ErrInvalidDiceExpr, expr)
	}
	roll := DiceRoll{Count: count, Sides: sides}
	if m[3] != "" {
		k, err := strconv.Atoi(m[5])
		if err != nil {
			return DiceRoll{}, fmt.Errorf("%w: %q: %w", ErrInvalidDiceExpr, expr, err)
		}
		if m[4] == "-" {
			k = -k
		}
		roll.Modifier = &k
	}
	return roll, nil
}

// NewRNG returns an independent generator. Each resolution should own one.
func NewRNG(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func clampTotal(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
