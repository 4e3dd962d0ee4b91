package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/api"
	"github.com/mcdev12/bidroom/go/internal/config"
	"github.com/mcdev12/bidroom/go/internal/dbconfig"
	"github.com/mcdev12/bidroom/go/internal/gateway"
	"github.com/mcdev12/bidroom/go/internal/metrics"
	"github.com/mcdev12/bidroom/go/internal/models"
	"github.com/mcdev12/bidroom/go/internal/natsbus"
	"github.com/mcdev12/bidroom/go/internal/registry"
	"github.com/mcdev12/bidroom/go/internal/rooms"
	"github.com/mcdev12/bidroom/go/internal/roomstore"
)

// Services is everything main starts and stops.
type Services struct {
	Registry  *registry.Registry
	Gateway   *gateway.Manager
	Persister *roomstore.Persister
	Events    *natsbus.Publisher
	Handler   http.Handler

	closers []func()
}

// Close releases the store and stream connections.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupServices(ctx context.Context, cfg *config.Config, db *sql.DB, players []models.Player) (*Services, error) {
	// Wire up dependency injection chain
	// Stores → Registry → App → Gateway / Service → Router
	svc := &Services{}
	health := map[string]api.Pinger{}
	if db != nil {
		health["database"] = api.PingFunc(db.PingContext)
	}

	store, err := setupRoomStore(ctx, cfg, svc, health)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Persister = roomstore.NewPersister(store)

	prom := metrics.NewPrometheus()
	opts := []registry.Option{
		registry.WithSnapshotSink(svc.Persister),
		registry.WithMetrics(prom),
		registry.WithRoomGauge(prom),
	}

	if cfg.NATSURL != "" {
		natsCfg := cfg.NATS()
		nc, js, err := natsbus.Connect(natsCfg)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.closers = append(svc.closers, func() {
			if err := nc.Drain(); err != nil {
				log.Error().Err(err).Msg("failed to drain nats connection")
			}
		})
		if err := natsbus.EnsureStream(ctx, js, natsCfg); err != nil {
			svc.Close()
			return nil, err
		}
		svc.Events = natsbus.NewPublisher(js, natsCfg)
		opts = append(opts, registry.WithPublisher(svc.Events))
		health["nats"] = natsPinger(nc, js)
	}

	svc.Registry = registry.New(players, cfg.Registry(), opts...)
	app := rooms.NewApp(svc.Registry, players, store)

	gwCfg := gateway.DefaultConfig()
	gwCfg.AllowedOrigins = cfg.Origins()
	svc.Gateway = gateway.NewManager(app, gwCfg, prom)

	svc.Handler = api.NewRouter(
		api.RouterConfig{RateLimitPerMinute: cfg.RateLimitPerMinute},
		api.Deps{
			Service: api.NewService(app),
			Gateway: svc.Gateway,
			Metrics: prom.Handler(),
			Health:  health,
		},
	)
	return svc, nil
}

func setupRoomStore(ctx context.Context, cfg *config.Config, svc *Services, health map[string]api.Pinger) (roomstore.Store, error) {
	switch cfg.RoomStore {
	case config.BackendRedis:
		client, err := roomstore.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, func() { _ = client.Close() })
		store := roomstore.NewRedisStore(client, cfg.RoomSnapshotTTL)
		health["room_store"] = store
		return store, nil
	case config.BackendPostgres:
		pool, err := dbconfig.OpenPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, pool.Close)
		store := roomstore.NewPostgresStore(pool)
		health["room_store"] = store
		return store, nil
	default:
		return roomstore.NewMemoryStore(), nil
	}
}

// natsPinger reports the connection state and the event stream's presence.
func natsPinger(nc *nats.Conn, js jetstream.JetStream) api.PingFunc {
	return func(ctx context.Context) error {
		if nc.Status() != nats.CONNECTED {
			return nats.ErrConnectionClosed
		}
		_, err := js.AccountInfo(ctx)
		return err
	}
}
