package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/dbconfig"
	"github.com/mcdev12/bidroom/go/internal/natsbus"
	"github.com/mcdev12/bidroom/go/internal/registry"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all configuration for the auction server.
type Config struct {
	Port      string `conf:"default:8080,env:PORT"`
	LogLevel  string `conf:"default:info,env:LOG_LEVEL"`
	LogFormat string `conf:"default:console,enum:console|json,env:LOG_FORMAT"`

	// Comma-separated list of allowed origins; * allows all.
	CORSOrigins        string `conf:"default:*,env:CORS_ORIGINS"`
	RateLimitPerMinute int    `conf:"default:600,env:RATE_LIMIT_PER_MINUTE"`

	// Auction rules
	BidWindow        time.Duration `conf:"default:30s,env:BID_WINDOW"`
	MaxTeams         int           `conf:"default:8,env:MAX_TEAMS"`
	StartingBudget   int64         `conf:"default:8000,env:STARTING_BUDGET"`
	MinIncrement     int64         `conf:"default:0,env:MIN_INCREMENT"`
	ShufflePool      bool          `conf:"default:false,env:SHUFFLE_POOL"`
	MailboxSize      int           `conf:"default:64,env:MAILBOX_SIZE"`
	CompletedRoomTTL time.Duration `conf:"default:1h,env:COMPLETED_ROOM_TTL"`
	SweepInterval    time.Duration `conf:"default:1m,env:SWEEP_INTERVAL"`

	// Catalog
	CatalogBackend string `conf:"default:memory,enum:memory|postgres,env:CATALOG_BACKEND"`
	CatalogFile    string `conf:"env:CATALOG_FILE"`

	// Room snapshots
	RoomStore       string        `conf:"default:memory,enum:memory|redis|postgres,env:ROOM_STORE"`
	RedisURL        string        `conf:"default:redis://localhost:6379,env:REDIS_URL"`
	RoomSnapshotTTL time.Duration `conf:"default:24h,env:ROOM_SNAPSHOT_TTL"`

	// Event stream; an empty URL disables it.
	NATSURL            string `conf:"env:NATS_URL"`
	EventStream        string `conf:"default:AUCTION_EVENTS,env:EVENT_STREAM"`
	EventSubjectPrefix string `conf:"default:auction.events,env:EVENT_SUBJECT_PREFIX"`

	DB dbconfig.Config
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := conf.Parse("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values conf tags cannot express.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	if err := c.Settings().Validate(); err != nil {
		return fmt.Errorf("invalid auction settings: %w", err)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	return nil
}

// Settings returns the per-room auction rules.
func (c *Config) Settings() auction.Settings {
	return auction.Settings{
		BidWindow:      c.BidWindow,
		MaxTeams:       c.MaxTeams,
		StartingBudget: c.StartingBudget,
		MinIncrement:   c.MinIncrement,
		MailboxSize:    c.MailboxSize,
	}
}

func (c *Config) Registry() registry.Config {
	rc := registry.DefaultConfig()
	rc.Settings = c.Settings()
	rc.Shuffle = c.ShufflePool
	rc.CompletedTTL = c.CompletedRoomTTL
	return rc
}

func (c *Config) NATS() natsbus.Config {
	nc := natsbus.DefaultConfig()
	nc.URL = c.NATSURL
	nc.StreamName = c.EventStream
	nc.SubjectPrefix = c.EventSubjectPrefix
	return nc
}

// Origins splits CORSOrigins into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
