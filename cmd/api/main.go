package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pefman/armorsheet/internal/api"
	"github.com/pefman/armorsheet/internal/catalog"
	"github.com/pefman/armorsheet/internal/config"
	"github.com/pefman/armorsheet/internal/feed"
	"github.com/pefman/armorsheet/internal/logging"
	"github.com/pefman/armorsheet/internal/sheet"
	"github.com/pefman/armorsheet/internal/storage"
	"github.com/pefman/armorsheet/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Parse()

	cfgErr := config.Load(*configDir)
	log := logging.New(config.GetString("logLevel"), config.GetBool("logPretty"), os.Stdout)
	if cfgErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(cfgErr, &notFound) {
			log.Fatal().Err(cfgErr).Msg("Failed to load config")
		}
		log.Warn().Str("dir", *configDir).Msg("No config file found, using defaults")
	}
	log.Info().Str("version", buildVersion).Str("built", buildTime).Msg("Starting armorsheet API")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run(ctx context.Context, log zerolog.Logger) error {
	store, err := storage.Open(config.GetString("db.path"), log)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return err
	}

	cat, err := catalog.LoadArmor(config.GetString("catalog.dir"))
	if err != nil {
		return err
	}
	log.Info().Int("armor", cat.Len()).Str("dir", config.GetString("catalog.dir")).Msg("Loaded armor catalog")

	metrics, err := telemetry.New(nil)
	if err != nil {
		return err
	}

	opts := []sheet.Option{
		sheet.WithStore(store),
		sheet.WithMetrics(metrics),
		sheet.WithLogger(log),
	}
	var feedHandler http.Handler
	if config.GetBool("feed.enabled") {
		hub := feed.NewHub(log)
		defer hub.Close()
		opts = append(opts, sheet.WithNotifier(hub))
		feedHandler = hub
	}
	reg := sheet.New(opts...)
	if err := reg.Load(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              config.GetString("listenAddr"),
		Handler:           api.NewServer(reg, cat, feedHandler, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("armorsheet API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
