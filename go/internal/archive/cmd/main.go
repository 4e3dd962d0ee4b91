package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/archive"
	"github.com/mcdev12/bidroom/go/internal/config"
	"github.com/mcdev12/bidroom/go/internal/dbconfig"
	"github.com/mcdev12/bidroom/go/internal/migrations"
	"github.com/mcdev12/bidroom/go/internal/natsbus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if cfg.NATSURL == "" {
		log.Fatal().Msg("NATS_URL is required for the event archive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := dbconfig.Open(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := migrations.Up(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().
		Str("host", cfg.DB.Host).
		Int("port", cfg.DB.Port).
		Str("database", cfg.DB.Name).
		Msg("connected to database")

	natsCfg := cfg.NATS()
	nc, js, err := natsbus.Connect(natsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()
	if err := natsbus.EnsureStream(ctx, js, natsCfg); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure event stream")
	}

	consumerCfg := archive.DefaultConsumerConfig()
	consumerCfg.StreamName = natsCfg.StreamName
	consumerCfg.SubjectFilter = natsCfg.SubjectPrefix + ".>"

	sink := archive.NewSink(db)
	consumer, err := archive.NewConsumer(ctx, js, consumerCfg, sink.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create archive consumer")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- consumer.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		<-errCh
		log.Info().Msg("graceful shutdown complete")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("archive consumer exited unexpectedly")
		}
	}
}
