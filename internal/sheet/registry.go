// Package sheet keeps the live character sheets: worn armor, wounds, and the
// attacks resolved against them. Every mutation is persisted and broadcast.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pefman/armorsheet/internal/catalog"
	"github.com/pefman/armorsheet/internal/engine"
	"github.com/pefman/armorsheet/internal/game"
	"github.com/pefman/armorsheet/internal/models"
	"github.com/pefman/armorsheet/internal/stats"
	"github.com/pefman/armorsheet/internal/telemetry"
	"github.com/rs/zerolog"
)

// Attack size limits. Larger requests are rejected as invalid input.
const (
	MaxDice = 1000
	MaxHits = 1000
)

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrPieceNotFound     = errors.New("armor piece not found")
	ErrWoundNotFound     = errors.New("wound not found")
	ErrInvalidInput      = errors.New("invalid input")
)

// Store persists whole character sheets.
type Store interface {
	SaveCharacter(ctx context.Context, rec models.CharacterRecord) error
	DeleteCharacter(ctx context.Context, id string) error
	LoadCharacters(ctx context.Context) ([]models.CharacterRecord, error)
}

// Event types delivered to notifiers.
const (
	EventCreated  = "created"
	EventDeleted  = "deleted"
	EventEquipped = "equipped"
	EventRemoved  = "unequipped"
	EventRepaired = "repaired"
	EventAttacked = "attacked"
	EventWound    = "wound_changed"
)

// Event describes one change to a character.
type Event struct {
	Type        string `json:"type"`
	CharacterID string `json:"character_id"`
	Data        any    `json:"data,omitempty"`
}

// Notifier receives events after they are persisted. Publish must not block.
type Notifier interface {
	Publish(Event)
}

// Sheet is a character with the figures derived from its armor and wounds.
type Sheet struct {
	models.CharacterRecord
	Protection   map[models.Location]int `json:"protection"`
	Encumbrance  int                     `json:"encumbrance"`
	LayerPenalty int                     `json:"layer_penalty"`
	TotalDamage  int                     `json:"total_damage"`
	Fatal        bool                    `json:"fatal"`
}

type character struct {
	mu      sync.Mutex
	id      string
	name    string
	stack   *game.Stack
	wounds  *game.Ledger
	deleted bool
}

func (c *character) record() models.CharacterRecord {
	return models.CharacterRecord{
		ID:     c.id,
		Name:   c.name,
		Armor:  c.stack.Records(),
		Wounds: c.wounds.Records(),
	}
}

// Registry owns every live character. Characters are locked individually, so
// attacks against different characters resolve in parallel.
type Registry struct {
	mu        sync.RWMutex
	chars     map[string]*character
	order     []string
	store     Store
	notifiers []Notifier
	metrics   *telemetry.Metrics
	log       zerolog.Logger
}

type Option func(*Registry)

// WithStore persists every mutation. Without it the registry is memory only.
func WithStore(s Store) Option { return func(r *Registry) { r.store = s } }

func WithNotifier(n Notifier) Option {
	return func(r *Registry) { r.notifiers = append(r.notifiers, n) }
}

func WithMetrics(m *telemetry.Metrics) Option { return func(r *Registry) { r.metrics = m } }

func WithLogger(l zerolog.Logger) Option { return func(r *Registry) { r.log = l } }

func New(opts ...Option) *Registry {
	r := &Registry{
		chars: make(map[string]*character),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory characters with the ones in the store.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	recs, err := r.store.LoadCharacters(ctx)
	if err != nil {
		return fmt.Errorf("load characters: %w", err)
	}
	chars := make(map[string]*character, len(recs))
	order := make([]string, 0, len(recs))
	for _, rec := range recs {
		c, err := fromRecord(rec)
		if err != nil {
			return fmt.Errorf("restore character %s: %w", rec.ID, err)
		}
		chars[c.id] = c
		order = append(order, c.id)
	}
	r.mu.Lock()
	r.chars, r.order = chars, order
	r.mu.Unlock()
	r.log.Info().Int("characters", len(recs)).Msg("Loaded characters")
	return nil
}

func fromRecord(rec models.CharacterRecord) (*character, error) {
	pieces := make([]*game.Piece, 0, len(rec.Armor))
	for _, a := range rec.Armor {
		pieces = append(pieces, game.NewPiece(a))
	}
	wounds := make([]game.Wound, 0, len(rec.Wounds))
	for _, wr := range rec.Wounds {
		w, err := game.WoundFromRecord(wr)
		if err != nil {
			return nil, err
		}
		wounds = append(wounds, w)
	}
	return &character{
		id:     rec.ID,
		name:   rec.Name,
		stack:  game.NewStack(pieces...),
		wounds: game.NewLedger(wounds...),
	}, nil
}

func (r *Registry) Create(ctx context.Context, name string) (models.CharacterRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.CharacterRecord{}, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	c := &character{
		id:     uuid.NewString(),
		name:   name,
		stack:  game.NewStack(),
		wounds: game.NewLedger(),
	}
	rec := c.record()
	if err := r.save(ctx, rec); err != nil {
		return models.CharacterRecord{}, err
	}
	r.mu.Lock()
	r.chars[c.id] = c
	r.order = append(r.order, c.id)
	r.mu.Unlock()
	r.log.Info().Str("character", c.id).Str("name", name).Msg("Character created")
	r.publish(Event{Type: EventCreated, CharacterID: c.id, Data: rec})
	return rec, nil
}

func (r *Registry) Get(id string) (models.CharacterRecord, error) {
	c, err := r.lookup(id)
	if err != nil {
		return models.CharacterRecord{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record(), nil
}

// List returns every character in creation order.
func (r *Registry) List() []models.CharacterRecord {
	r.mu.RLock()
	chars := make([]*character, 0, len(r.order))
	for _, id := range r.order {
		chars = append(chars, r.chars[id])
	}
	r.mu.RUnlock()

	out := make([]models.CharacterRecord, 0, len(chars))
	for _, c := range chars {
		c.mu.Lock()
		out = append(out, c.record())
		c.mu.Unlock()
	}
	return out
}

// Delete removes a character. Mutations already waiting on the character fail
// with ErrCharacterNotFound once it is gone.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	c, ok := r.chars[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	delete(r.chars, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	r.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = true
	stats.Forget(id)
	if r.store != nil {
		if err := r.store.DeleteCharacter(ctx, id); err != nil {
			return fmt.Errorf("delete character %s: %w", id, err)
		}
	}
	r.publish(Event{Type: EventDeleted, CharacterID: id})
	return nil
}

// Equip validates rec and puts it on the character. The piece gets a fresh ID.
func (r *Registry) Equip(ctx context.Context, id string, rec models.ArmorRecord) (models.ArmorRecord, error) {
	if err := catalog.Validate(rec); err != nil {
		return models.ArmorRecord{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	rec.ID = ""
	var piece models.ArmorRecord
	err := r.mutate(ctx, id, func(c *character) (Event, error) {
		p := game.NewPiece(rec)
		c.stack.Equip(p)
		piece = p.Record()
		return Event{Type: EventEquipped, Data: piece}, nil
	})
	return piece, err
}

// Unequip takes a piece off. Removing a piece the character does not wear is a
// no-op and reports false.
func (r *Registry) Unequip(ctx context.Context, id, pieceID string) (bool, error) {
	removed := false
	err := r.mutate(ctx, id, func(c *character) (Event, error) {
		p := c.stack.Find(pieceID)
		if p == nil {
			return Event{}, errNoChange
		}
		removed = c.stack.Remove(p)
		return Event{Type: EventRemoved, Data: p.Record()}, nil
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	return removed, err
}

// Repair removes up to n points of ablation from a piece.
func (r *Registry) Repair(ctx context.Context, id, pieceID string, n int) (models.ArmorRecord, error) {
	if n < 0 {
		return models.ArmorRecord{}, fmt.Errorf("%w: repair amount must be >= 0", ErrInvalidInput)
	}
	var piece models.ArmorRecord
	err := r.mutate(ctx, id, func(c *character) (Event, error) {
		p := c.stack.Find(pieceID)
		if p == nil {
			return Event{}, fmt.Errorf("%w: %s", ErrPieceNotFound, pieceID)
		}
		p.Repair(n)
		piece = p.Record()
		return Event{Type: EventRepaired, Data: piece}, nil
	})
	return piece, err
}

// Attack resolves an attack against the character and adds the wounds to its ledger.
// A seeded record reproduces the same rolls; otherwise a random seed is drawn and
// reported on the resolution.
func (r *Registry) Attack(ctx context.Context, id string, rec models.AttackRecord) (game.Resolution, error) {
	attack, err := game.ParseAttack(rec)
	if err != nil {
		return game.Resolution{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if attack.Hits < 0 || attack.Cover < 0 {
		return game.Resolution{}, fmt.Errorf("%w: hits and cover must be >= 0", ErrInvalidInput)
	}
	if attack.Hits > MaxHits {
		return game.Resolution{}, fmt.Errorf("%w: at most %d hits per attack", ErrInvalidInput, MaxHits)
	}
	if attack.Dice.Count > MaxDice {
		return game.Resolution{}, fmt.Errorf("%w: at most %d dice per hit", ErrInvalidInput, MaxDice)
	}
	var seed int64
	if rec.Seed != nil {
		seed = *rec.Seed
	} else if seed, err = engine.NewSeed(); err != nil {
		return game.Resolution{}, fmt.Errorf("seed attack: %w", err)
	}

	var res game.Resolution
	err = r.mutateThen(ctx, id, func(c *character) (Event, error) {
		rng := engine.NewRNG(seed)
		in := game.NewIncomingDamage(rng, attack)
		res = game.NewResolver(rng).ResolveDetailed(in, c.stack)
		res.Seed = seed
		c.wounds.Add(res.Wounds...)
		return Event{Type: EventAttacked, Data: res}, nil
	}, func() { stats.Record(id, res) })
	if err != nil {
		return game.Resolution{}, err
	}
	r.metrics.RecordResolution(ctx, res)
	r.log.Debug().
		Str("character", id).
		Str("damage_type", res.DamageType).
		Int64("seed", seed).
		Int("wounds", len(res.Wounds)).
		Int("damage", res.DamageOut).
		Msg("Attack resolved")
	return res, nil
}

// RemoveWound heals a wound completely. Unknown wounds are a no-op and report false.
func (r *Registry) RemoveWound(ctx context.Context, id, woundID string) (bool, error) {
	err := r.mutate(ctx, id, func(c *character) (Event, error) {
		if !c.wounds.Remove(woundID) {
			return Event{}, errNoChange
		}
		return Event{Type: EventWound, Data: map[string]string{"removed": woundID}}, nil
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	return err == nil, err
}

// ReduceWound lowers a wound's amount by n, floored at zero. The wound keeps its ID.
func (r *Registry) ReduceWound(ctx context.Context, id, woundID string, n int) (models.WoundRecord, error) {
	if n < 0 {
		return models.WoundRecord{}, fmt.Errorf("%w: reduction must be >= 0", ErrInvalidInput)
	}
	var wound models.WoundRecord
	err := r.mutate(ctx, id, func(c *character) (Event, error) {
		w, ok := c.wounds.Reduce(woundID, n)
		if !ok {
			return Event{}, fmt.Errorf("%w: %s", ErrWoundNotFound, woundID)
		}
		wound = w.Record()
		return Event{Type: EventWound, Data: wound}, nil
	})
	return wound, err
}

// Snapshot returns the character with its protection map and encumbrance.
func (r *Registry) Snapshot(id string) (Sheet, error) {
	c, err := r.lookup(id)
	if err != nil {
		return Sheet{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Sheet{
		CharacterRecord: c.record(),
		Protection:      c.stack.ProtectionMap(),
		Encumbrance:     c.stack.TotalEncumbrance(),
		LayerPenalty:    c.stack.LayerPenalty(),
		TotalDamage:     c.wounds.Total(),
		Fatal:           c.wounds.HasFatal(),
	}, nil
}

// errNoChange aborts a mutation without saving or publishing.
var errNoChange = errors.New("no change")

// mutate runs fn under the character lock, then persists and publishes the result.
// The store write happens under the lock so saves of one character never reorder.
func (r *Registry) mutate(ctx context.Context, id string, fn func(*character) (Event, error)) error {
	return r.mutateThen(ctx, id, fn, nil)
}

// mutateThen is mutate with a hook that runs under the lock once the save succeeded.
func (r *Registry) mutateThen(ctx context.Context, id string, fn func(*character) (Event, error), saved func()) error {
	c, err := r.lookup(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.deleted {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	ev, err := fn(c)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	err = r.save(ctx, c.record())
	if err == nil && saved != nil {
		saved()
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	ev.CharacterID = id
	r.publish(ev)
	return nil
}

func (r *Registry) lookup(id string) (*character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	return c, nil
}

func (r *Registry) save(ctx context.Context, rec models.CharacterRecord) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveCharacter(ctx, rec); err != nil {
		r.log.Error().Err(err).Str("character", rec.ID).Msg("Failed to save character")
		return fmt.Errorf("save character %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Registry) publish(ev Event) {
	for _, n := range r.notifiers {
		n.Publish(ev)
	}
}
