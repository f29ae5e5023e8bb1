// Package catalog loads armor definitions from YAML files.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pefman/armorsheet/internal/models"
	"gopkg.in/yaml.v3"
)

// Validate reports every problem with an armor record at once.
func Validate(rec models.ArmorRecord) error {
	var errs []error
	if strings.TrimSpace(rec.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !rec.Type.Valid() {
		errs = append(errs, fmt.Errorf("type must be hard or soft"))
	}
	if !rec.Zone.Valid() {
		errs = append(errs, fmt.Errorf("zone must be one of subdermal, skin_weave, body_plating, external"))
	}
	if rec.SPS < 0 {
		errs = append(errs, errors.New("sps must be >= 0"))
	}
	if rec.EV < 0 {
		errs = append(errs, errors.New("ev must be >= 0"))
	}
	if rec.Damage < 0 || rec.Damage > rec.SPS {
		errs = append(errs, errors.New("damage must be between 0 and sps"))
	}
	if len(rec.Locations) == 0 {
		errs = append(errs, errors.New("locations must not be empty"))
	}
	for _, l := range rec.Locations {
		if !l.Valid() {
			errs = append(errs, fmt.Errorf("location %d is not a body location", int(l)))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("armor %q: %w", rec.Name, errors.Join(errs...))
	}
	return nil
}

// Catalog is a read-only set of armor definitions keyed by name.
type Catalog struct {
	armor []models.ArmorRecord
}

// LoadArmor reads every .yaml/.yml file in dir. Each file holds a list of armor records.
// A missing directory yields an empty catalog.
func LoadArmor(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return &Catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LoadArmor: cannot read directory %q: %w", dir, err)
	}

	seen := map[string]string{}
	var armor []models.ArmorRecord
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadArmor: cannot read file %q: %w", path, err)
		}
		var recs []models.ArmorRecord
		if err := yaml.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("LoadArmor: cannot parse file %q: %w", path, err)
		}
		for _, rec := range recs {
			if err := Validate(rec); err != nil {
				return nil, fmt.Errorf("LoadArmor: invalid armor in %q: %w", path, err)
			}
			key := strings.ToLower(rec.Name)
			if prev, dup := seen[key]; dup {
				return nil, fmt.Errorf("LoadArmor: %q defined in both %q and %q", rec.Name, prev, path)
			}
			seen[key] = path
			rec.ID = ""
			armor = append(armor, rec)
		}
	}
	sort.Slice(armor, func(i, j int) bool { return strings.ToLower(armor[i].Name) < strings.ToLower(armor[j].Name) })
	return &Catalog{armor: armor}, nil
}

// New builds a catalog from records that are already validated.
func New(recs ...models.ArmorRecord) *Catalog {
	c := &Catalog{armor: append([]models.ArmorRecord(nil), recs...)}
	sort.Slice(c.armor, func(i, j int) bool { return strings.ToLower(c.armor[i].Name) < strings.ToLower(c.armor[j].Name) })
	return c
}

// All returns every definition sorted by name.
func (c *Catalog) All() []models.ArmorRecord {
	out := make([]models.ArmorRecord, len(c.armor))
	for i, rec := range c.armor {
		out[i] = rec
		out[i].Locations = append([]models.Location(nil), rec.Locations...)
	}
	return out
}

// Find looks a definition up by case-insensitive name.
func (c *Catalog) Find(name string) (models.ArmorRecord, bool) {
	for _, rec := range c.armor {
		if strings.EqualFold(rec.Name, strings.TrimSpace(name)) {
			rec.Locations = append([]models.Location(nil), rec.Locations...)
			return rec, true
		}
	}
	return models.ArmorRecord{}, false
}

func (c *Catalog) Len() int { return len(c.armor) }
