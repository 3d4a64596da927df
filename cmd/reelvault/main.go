package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reelvault/reelvault/internal/api"
	"github.com/reelvault/reelvault/internal/config"
	"github.com/reelvault/reelvault/internal/database"
	"github.com/reelvault/reelvault/internal/library/manager"
	"github.com/reelvault/reelvault/internal/library/scanner"
	"github.com/reelvault/reelvault/internal/library/sorter"
	"github.com/reelvault/reelvault/internal/library/store"
	libsync "github.com/reelvault/reelvault/internal/library/sync"
	"github.com/reelvault/reelvault/internal/logger"
	"github.com/reelvault/reelvault/internal/metadata"
	"github.com/reelvault/reelvault/internal/metadata/tmdb"
	"github.com/reelvault/reelvault/internal/metadata/tvdb"
	"github.com/reelvault/reelvault/internal/thumbnail"
)

func main() {
	// Local overrides for development; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	libraryRoot := cfg.Library.Root
	if libraryRoot == "" {
		libraryRoot = "./library"
		log.Warn().Str("root", libraryRoot).Msg("No library root configured, using default")
	}
	if err := os.MkdirAll(libraryRoot, 0o755); err != nil {
		log.Fatal().Err(err).Str("root", libraryRoot).Msg("Failed to create library root")
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	catalogs := map[metadata.Source]metadata.Catalog{
		metadata.SourceTMDB: tmdb.NewClient(cfg.Metadata.TMDB, log.Logger),
		metadata.SourceTVDB: tvdb.NewClient(cfg.Metadata.TVDB, log.Logger),
	}
	resolver := metadata.NewResolver(catalogs, log.Logger)
	if !resolver.HasCatalog() {
		log.Warn().Msg("No metadata catalog configured, synchronization will be unable to resolve items")
	}

	st := store.New(db.Conn(), log.Logger)
	sc := scanner.New(st, log.Logger)
	so := sorter.New(log.Logger)
	thumbs := thumbnail.New(cfg.Thumbnails, log.Logger)
	if !thumbs.Available() {
		log.Warn().Msg("ffmpeg not found, local thumbnail fallback disabled")
	}
	sy := libsync.New(st, resolver, thumbs, log.Logger)

	libraryService := manager.New(libraryRoot, st, sc, so, sy, log.Logger)
	server := api.NewServer(cfg, libraryService, resolver, log.Logger)

	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil {
			log.Info().Err(err).Msg("HTTP server stopped")
		}
	}()

	log.Info().
		Str("address", cfg.Server.Address()).
		Str("library", libraryRoot).
		Msg("ReelVault started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	libraryService.CancelSync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
