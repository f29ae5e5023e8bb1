// Command game runs a scripted skirmish against a running armorsheet API: it creates a
// character, dresses it from the armor catalog and fires volleys at it, printing every step.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/pefman/armorsheet/internal/api"
)

// ========================= Config (env-configurable) =========================
// Defaults can be overridden via environment variables, and those by flags.

type gameConfig struct {
	APIBase  string   `env:"DATA_API_BASE"    envDefault:"http://localhost:8080"`
	Name     string   `env:"GAME_CHARACTER"   envDefault:"Target Dummy"`
	Armor    []string `env:"GAME_ARMOR"       envSeparator:","`
	Dice     string   `env:"GAME_DICE"        envDefault:"2d6+2"`
	Hits     int      `env:"GAME_HITS"        envDefault:"3"`
	Damage   string   `env:"GAME_DAMAGE_TYPE" envDefault:"ballistic"`
	Location string   `env:"GAME_LOCATION"`
	Spread   []string `env:"GAME_SPREAD"      envSeparator:","`
	Cover    int      `env:"GAME_COVER"`
	Rounds   int      `env:"GAME_ROUNDS"      envDefault:"1"`
	Seed     int64    `env:"GAME_SEED"`
	Follow   bool     `env:"GAME_FOLLOW"`
}

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func loadConfig(args []string) (gameConfig, error) {
	var cfg gameConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	fs := flag.NewFlagSet("game", flag.ContinueOnError)
	armor := strings.Join(cfg.Armor, ",")
	spread := strings.Join(cfg.Spread, ",")
	fs.StringVar(&cfg.APIBase, "api", cfg.APIBase, "armorsheet API base URL")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "character name")
	fs.StringVar(&armor, "armor", armor, "comma-separated catalog armor to equip")
	fs.StringVar(&cfg.Dice, "dice", cfg.Dice, "damage dice per hit, e.g. 3d6+1")
	fs.IntVar(&cfg.Hits, "hits", cfg.Hits, "hits per volley")
	fs.StringVar(&cfg.Damage, "type", cfg.Damage, "damage type")
	fs.StringVar(&cfg.Location, "location", cfg.Location, "targeted location (random when empty)")
	fs.StringVar(&spread, "spread", spread, "comma-separated locations every hit spans")
	fs.IntVar(&cfg.Cover, "cover", cfg.Cover, "cover protection")
	fs.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "volleys to fire")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "first volley seed (0 draws a random seed)")
	fs.BoolVar(&cfg.Follow, "follow", cfg.Follow, "print live feed events")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Armor = splitList(armor)
	cfg.Spread = splitList(spread)
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("armorsheet skirmish %s %s against %s\n", buildVersion, buildTime, cfg.APIBase)
	if err := skirmish(ctx, api.NewClient(cfg.APIBase), cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
