package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pefman/armorsheet/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sheet() models.CharacterRecord {
	return models.CharacterRecord{
		ID:   "c1",
		Name: "Rogue",
		Armor: []models.ArmorRecord{
			{ID: "a1", Name: "Vest", Type: models.Soft, Zone: models.External, SPS: 10, EV: 1, Damage: 2, Locations: []models.Location{models.Torso}},
			{ID: "a2", Name: "Weave", Type: models.Soft, Zone: models.SkinWeave, SPS: 12, Locations: models.AllLocations},
		},
		Wounds: []models.WoundRecord{
			{ID: "w1", Trauma: "piercing", Amount: 5, Locations: []models.Location{models.Head}},
			{ID: "w2", Trauma: "blunt", Amount: 14, Locations: []models.Location{models.Torso, models.Head}, Portions: []int{4, 10}},
		},
	}
}

func TestSaveAndLoadCharacter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCharacter(ctx, sheet()))

	got, err := s.LoadCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rogue", got[0].Name)
	assert.Equal(t, sheet().Armor, got[0].Armor)
	assert.Equal(t, sheet().Wounds, got[0].Wounds)
}

func TestSaveCharacterReplacesRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCharacter(ctx, sheet()))

	updated := sheet()
	updated.Armor = updated.Armor[:1]
	updated.Wounds = nil
	require.NoError(t, s.SaveCharacter(ctx, updated))

	got, err := s.LoadCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Armor, 1)
	assert.Empty(t, got[0].Wounds)
}

func TestDeleteCharacter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCharacter(ctx, sheet()))
	require.NoError(t, s.DeleteCharacter(ctx, "c1"))
	require.NoError(t, s.DeleteCharacter(ctx, "missing"))

	got, err := s.LoadCharacters(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileDatabaseSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.db")
	ctx := context.Background()

	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.SaveCharacter(ctx, sheet()))
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())
	got, err := s.LoadCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Wounds, 2)
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)
	require.NoError(t, a.SaveCharacter(context.Background(), sheet()))

	got, err := b.LoadCharacters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadKeepsCreationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := sheet()
	second := models.CharacterRecord{ID: "c2", Name: "Bruiser"}
	require.NoError(t, s.SaveCharacter(ctx, first))
	require.NoError(t, s.SaveCharacter(ctx, second))

	first.Name = "Rogue Renamed"
	require.NoError(t, s.SaveCharacter(ctx, first))

	got, err := s.LoadCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Rogue Renamed", got[0].Name)
	assert.Equal(t, "c2", got[1].ID)
}
