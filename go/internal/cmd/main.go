package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/config"
)

const shutdownReason = "server_shutdown"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if needsDatabase(cfg) {
		db, err = setupDatabase(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up database")
		}
		defer db.Close()
	}

	players, err := setupCatalog(ctx, cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	services, err := setupServices(ctx, cfg, db, players)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	// Background workers stop when ctx is cancelled; the persister and
	// publisher flush what they hold before returning.
	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	wg.Add(2)
	go func() {
		defer wg.Done()
		services.Persister.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		services.Registry.RunSweeper(workerCtx, cfg.SweepInterval)
	}()
	if services.Events != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			services.Events.Run(workerCtx)
		}()
	}

	server := setupServer(cfg, services.Handler)
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Int("players", len(players)).
			Str("room_store", cfg.RoomStore).
			Bool("event_stream", services.Events != nil).
			Msg("auction server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Rooms close first so every subscriber sees room_closed before its
	// connection goes away.
	services.Registry.Shutdown(shutdownReason)
	services.Gateway.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancelWorkers()
	wg.Wait()
	log.Info().Msg("auction server shutdown complete")
}
