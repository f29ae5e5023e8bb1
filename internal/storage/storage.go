// Package storage persists character sheets (worn armor and wounds) with GORM on SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pefman/armorsheet/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Character is the character row.
type Character struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArmorPiece is one worn piece. Position keeps equip order.
type ArmorPiece struct {
	ID          string `gorm:"primaryKey"`
	CharacterID string `gorm:"index"`
	Position    int
	Name        string
	Type        string
	Zone        string
	SPS         int
	EV          int
	Damage      int
	Locations   string
}

type Wound struct {
	ID          string `gorm:"primaryKey"`
	CharacterID string `gorm:"index"`
	Position    int
	Trauma      string
	Amount      int
	Locations   string
	Portions    string
}

// Models lists every table managed by Migrate.
var Models = []any{&Character{}, &ArmorPiece{}, &Wound{}}

// Store is a GORM-backed character store.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the SQLite database at path. An empty path opens a private
// in-memory database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if path == "" {
		log.Info().Msg("Using in-memory SQLite DB")
	} else {
		log.Info().Str("path", path).Msg("Using local SQLite DB")
	}
	return &Store{db: db, log: log}, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// SaveCharacter replaces the stored sheet of a character in one transaction.
func (s *Store) SaveCharacter(ctx context.Context, rec models.CharacterRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := Character{ID: rec.ID, Name: rec.Name}
		upsert := clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}
		if err := tx.Clauses(upsert).Create(&row).Error; err != nil {
			return fmt.Errorf("save character: %w", err)
		}
		if err := tx.Where("character_id = ?", rec.ID).Delete(&ArmorPiece{}).Error; err != nil {
			return fmt.Errorf("clear armor: %w", err)
		}
		if err := tx.Where("character_id = ?", rec.ID).Delete(&Wound{}).Error; err != nil {
			return fmt.Errorf("clear wounds: %w", err)
		}
		if len(rec.Armor) > 0 {
			rows := make([]ArmorPiece, 0, len(rec.Armor))
			for i, a := range rec.Armor {
				rows = append(rows, ArmorPiece{
					ID:          a.ID,
					CharacterID: rec.ID,
					Position:    i,
					Name:        a.Name,
					Type:        a.Type.String(),
					Zone:        a.Zone.String(),
					SPS:         a.SPS,
					EV:          a.EV,
					Damage:      a.Damage,
					Locations:   joinLocations(a.Locations),
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert armor: %w", err)
			}
		}
		if len(rec.Wounds) > 0 {
			rows := make([]Wound, 0, len(rec.Wounds))
			for i, w := range rec.Wounds {
				rows = append(rows, Wound{
					ID:          w.ID,
					CharacterID: rec.ID,
					Position:    i,
					Trauma:      w.Trauma,
					Amount:      w.Amount,
					Locations:   joinLocations(w.Locations),
					Portions:    joinInts(w.Portions),
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert wounds: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug().Str("character", rec.ID).Int("armor", len(rec.Armor)).Int("wounds", len(rec.Wounds)).Msg("Saved character")
	return nil
}

// DeleteCharacter removes a character and everything it owns. Unknown IDs are ignored.
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&ArmorPiece{}, &Wound{}} {
			if err := tx.Where("character_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete character %s: %w", id, err)
			}
		}
		if err := tx.Where("id = ?", id).Delete(&Character{}).Error; err != nil {
			return fmt.Errorf("delete character %s: %w", id, err)
		}
		return nil
	})
}

// LoadCharacters reads every stored sheet, oldest character first.
func (s *Store) LoadCharacters(ctx context.Context) ([]models.CharacterRecord, error) {
	db := s.db.WithContext(ctx)
	var chars []Character
	if err := db.Order("created_at, id").Find(&chars).Error; err != nil {
		return nil, fmt.Errorf("load characters: %w", err)
	}
	var armor []ArmorPiece
	if err := db.Order("character_id, position").Find(&armor).Error; err != nil {
		return nil, fmt.Errorf("load armor: %w", err)
	}
	var wounds []Wound
	if err := db.Order("character_id, position").Find(&wounds).Error; err != nil {
		return nil, fmt.Errorf("load wounds: %w", err)
	}

	armorBy := map[string][]models.ArmorRecord{}
	for _, a := range armor {
		rec, err := a.record()
		if err != nil {
			return nil, err
		}
		armorBy[a.CharacterID] = append(armorBy[a.CharacterID], rec)
	}
	woundsBy := map[string][]models.WoundRecord{}
	for _, w := range wounds {
		rec, err := w.record()
		if err != nil {
			return nil, err
		}
		woundsBy[w.CharacterID] = append(woundsBy[w.CharacterID], rec)
	}

	out := make([]models.CharacterRecord, 0, len(chars))
	for _, c := range chars {
		out = append(out, models.CharacterRecord{
			ID:     c.ID,
			Name:   c.Name,
			Armor:  armorBy[c.ID],
			Wounds: woundsBy[c.ID],
		})
	}
	return out, nil
}

func (a ArmorPiece) record() (models.ArmorRecord, error) {
	typ, err := models.ParseArmorType(a.Type)
	if err != nil {
		return models.ArmorRecord{}, fmt.Errorf("armor %s: %w", a.ID, err)
	}
	zone, err := models.ParseZone(a.Zone)
	if err != nil {
		return models.ArmorRecord{}, fmt.Errorf("armor %s: %w", a.ID, err)
	}
	locs, err := splitLocations(a.Locations)
	if err != nil {
		return models.ArmorRecord{}, fmt.Errorf("armor %s: %w", a.ID, err)
	}
	return models.ArmorRecord{
		ID:        a.ID,
		Name:      a.Name,
		Type:      typ,
		Zone:      zone,
		SPS:       a.SPS,
		EV:        a.EV,
		Locations: locs,
		Damage:    a.Damage,
	}, nil
}

func (w Wound) record() (models.WoundRecord, error) {
	locs, err := splitLocations(w.Locations)
	if err != nil {
		return models.WoundRecord{}, fmt.Errorf("wound %s: %w", w.ID, err)
	}
	portions, err := splitInts(w.Portions)
	if err != nil {
		return models.WoundRecord{}, fmt.Errorf("wound %s: %w", w.ID, err)
	}
	return models.WoundRecord{
		ID:        w.ID,
		Trauma:    w.Trauma,
		Amount:    w.Amount,
		Locations: locs,
		Portions:  portions,
	}, nil
}

func joinLocations(locs []models.Location) string {
	names := make([]string, len(locs))
	for i, l := range locs {
		names[i] = l.String()
	}
	return strings.Join(names, ",")
}

func splitLocations(s string) ([]models.Location, error) {
	if s == "" {
		return nil, nil
	}
	var out []models.Location
	for _, part := range strings.Split(s, ",") {
		l, err := models.ParseLocation(part)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("bad portion %q", part), err)
		}
		out = append(out, v)
	}
	return out, nil
}
