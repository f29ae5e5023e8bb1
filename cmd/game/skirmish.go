package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pefman/armorsheet/internal/api"
	"github.com/pefman/armorsheet/internal/models"
)

// lockedWriter serialises output from the feed follower and the main flow.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

func skirmish(ctx context.Context, c *api.Client, cfg gameConfig, w io.Writer) error {
	out := &lockedWriter{w: w}
	rec, err := attackRecord(cfg)
	if err != nil {
		return err
	}
	if err := c.Health(ctx); err != nil {
		return fmt.Errorf("api not reachable: %w", err)
	}

	char, err := c.CreateCharacter(ctx, cfg.Name)
	if err != nil {
		return fmt.Errorf("create character: %w", err)
	}
	out.printf("Created %s (%s)\n", char.Name, char.ID)

	if cfg.Follow {
		stopFollow, err := follow(ctx, cfg.APIBase, char.ID, out)
		if err != nil {
			return err
		}
		defer stopFollow()
	}

	for _, name := range cfg.Armor {
		piece, err := c.EquipFromCatalog(ctx, char.ID, name)
		if err != nil {
			return fmt.Errorf("equip %q: %w", name, err)
		}
		out.printf("Equipped %s (%s, SP %d, EV %d)\n", piece.Name, piece.Zone, piece.SPS, piece.EV)
	}

	prot, err := c.Protection(ctx, char.ID)
	if err != nil {
		return err
	}
	out.printf("Protection:")
	for _, l := range models.AllLocations {
		out.printf(" %s=%d", l, prot.Protection[l])
	}
	out.printf(" | encumbrance %d\n", prot.Encumbrance)

	for round := 1; round <= cfg.Rounds; round++ {
		if cfg.Seed != 0 {
			seed := cfg.Seed + int64(round-1)
			rec.Seed = &seed
		}
		res, err := c.Attack(ctx, char.ID, rec)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		out.printf("--- Round %d (seed %d) ---\n", round, res.Seed)
		for _, line := range res.Logs {
			out.printf("%s\n", line)
		}
	}

	sheet, err := c.Character(ctx, char.ID)
	if err != nil {
		return err
	}
	out.printf("=== %s: %d wound(s), %d effective damage ===\n", sheet.Name, len(sheet.Wounds), sheet.TotalDamage)
	for _, wd := range sheet.Wounds {
		out.printf("  %-9s %2d on %s%s\n", wd.Trauma, wd.Effective, joinLocations(wd.Locations), severity(wd))
	}
	for _, a := range sheet.Armor {
		if a.Damage > 0 {
			out.printf("  %s ablated by %d\n", a.Name, a.Damage)
		}
	}
	if sheet.Fatal {
		out.printf("%s is dead.\n", sheet.Name)
	}
	return nil
}

func attackRecord(cfg gameConfig) (models.AttackRecord, error) {
	rec := models.AttackRecord{
		Dice:       cfg.Dice,
		Hits:       cfg.Hits,
		DamageType: cfg.Damage,
		Cover:      cfg.Cover,
	}
	if cfg.Location != "" {
		loc, err := models.ParseLocation(cfg.Location)
		if err != nil {
			return rec, err
		}
		rec.Location = &loc
	}
	for _, s := range cfg.Spread {
		loc, err := models.ParseLocation(s)
		if err != nil {
			return rec, err
		}
		rec.Spread = append(rec.Spread, loc)
	}
	return rec, nil
}

func severity(w models.WoundRecord) string {
	switch {
	case w.Fatal:
		return " (FATAL)"
	case w.Mortal:
		return " (mortal)"
	}
	return ""
}

func joinLocations(locs []models.Location) string {
	names := make([]string, len(locs))
	for i, l := range locs {
		names[i] = l.String()
	}
	return strings.Join(names, "+")
}

type feedFrame struct {
	Type string `json:"type"`
}

// follow subscribes to the character's feed and prints every event type until stopped.
// It returns once the subscription is confirmed.
func follow(ctx context.Context, apiBase, characterID string, out *lockedWriter) (func(), error) {
	u, err := url.Parse(strings.TrimRight(apiBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("bad api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws/characters/" + url.PathEscape(characterID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("follow feed: %w", err)
	}
	var hello feedFrame
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("follow feed: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f feedFrame
			if json.Unmarshal(data, &f) == nil {
				out.printf("[feed] %s\n", f.Type)
			}
		}
	}()
	// Closing politely lets the server flush frames already queued for us.
	return func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
		_ = conn.Close()
		<-done
	}, nil
}
