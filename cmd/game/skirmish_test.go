package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/pefman/armorsheet/internal/api"
	"github.com/pefman/armorsheet/internal/catalog"
	"github.com/pefman/armorsheet/internal/feed"
	"github.com/pefman/armorsheet/internal/models"
	"github.com/pefman/armorsheet/internal/sheet"
	"github.com/pefman/armorsheet/internal/stats"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	t.Cleanup(stats.Reset)
	hub := feed.NewHub(zerolog.Nop())
	reg := sheet.New(sheet.WithNotifier(hub))
	cat := catalog.New(
		models.ArmorRecord{Name: "Kevlar Vest", Type: models.Soft, Zone: models.External, SPS: 10, Locations: []models.Location{models.Torso}},
		models.ArmorRecord{Name: "Steel Helmet", Type: models.Hard, Zone: models.External, SPS: 14, Locations: []models.Location{models.Head}},
	)
	srv := httptest.NewServer(api.NewServer(reg, cat, hub, zerolog.Nop()).Router())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv
}

func TestSkirmish(t *testing.T) {
	srv := testServer(t)
	cfg := gameConfig{
		APIBase:  srv.URL,
		Name:     "Dummy",
		Armor:    []string{"kevlar vest", "steel helmet"},
		Dice:     "16",
		Hits:     2,
		Damage:   "ballistic",
		Location: "head",
		Rounds:   2,
		Seed:     7,
		Follow:   true,
	}
	var buf bytes.Buffer
	require.NoError(t, skirmish(context.Background(), api.NewClient(srv.URL), cfg, &buf))

	out := buf.String()
	assert.Contains(t, out, "Created Dummy")
	assert.Contains(t, out, "Equipped Steel Helmet (external, SP 14, EV 0)")
	assert.Contains(t, out, "head=14")
	assert.Contains(t, out, "torso=10")
	assert.Contains(t, out, "--- Round 1 (seed 7) ---")
	assert.Contains(t, out, "--- Round 2 (seed 8) ---")
	// 16 - 14 = 2 through per hit, doubled on the head
	assert.Contains(t, out, "=== Dummy: 4 wound(s), 16 effective damage ===")
	assert.Contains(t, out, "[feed] equipped")
	assert.Contains(t, out, "[feed] attacked")
}

func TestSkirmishRejectsBadLocation(t *testing.T) {
	srv := testServer(t)
	cfg := gameConfig{APIBase: srv.URL, Name: "X", Dice: "1d6", Hits: 1, Damage: "blunt", Location: "tail", Rounds: 1}
	err := skirmish(context.Background(), api.NewClient(srv.URL), cfg, &bytes.Buffer{})
	assert.ErrorIs(t, err, models.ErrUnknownLocation)
}

func TestSkirmishUnknownArmor(t *testing.T) {
	srv := testServer(t)
	cfg := gameConfig{APIBase: srv.URL, Name: "X", Armor: []string{"power armor"}, Dice: "1d6", Hits: 1, Damage: "blunt"}
	err := skirmish(context.Background(), api.NewClient(srv.URL), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("GAME_ARMOR", "vest, helmet")
	t.Setenv("GAME_HITS", "5")

	cfg, err := loadConfig([]string{"-rounds", "3", "-spread", "head,torso"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIBase)
	assert.Equal(t, []string{"vest", "helmet"}, cfg.Armor)
	assert.Equal(t, 5, cfg.Hits)
	assert.Equal(t, 3, cfg.Rounds)
	assert.Equal(t, []string{"head", "torso"}, cfg.Spread)
	assert.Equal(t, "2d6+2", cfg.Dice)
}
