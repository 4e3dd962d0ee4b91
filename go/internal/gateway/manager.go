// Package gateway serves the websocket surface of the auction: clients join
// rooms, place bids and receive room events over a single connection.
package gateway

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/broadcast"
	"github.com/mcdev12/bidroom/go/internal/models"
)

// RoomApp defines what the gateway needs from the room layer.
type RoomApp interface {
	JoinRoom(ctx context.Context, code, teamName, ownerID string) (models.Team, *models.Room, error)
	PlaceBid(ctx context.Context, code, ownerID string, amount int64) (auction.BidReceipt, error)
	Subscribe(code string, sub broadcast.Subscriber) (*models.Room, error)
	Unsubscribe(code, id string)
}

// ConnGauge counts open connections.
type ConnGauge interface {
	ClientConnected()
	ClientDisconnected()
}

type noopGauge struct{}

func (noopGauge) ClientConnected()    {}
func (noopGauge) ClientDisconnected() {}

// Config holds websocket connection settings.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	RequestTimeout  time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	AllowedOrigins  []string
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		RequestTimeout:  5 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		AllowedOrigins:  []string{"*"},
	}
}

func (c Config) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(c.AllowedOrigins) == 0 || slices.Contains(c.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(c.AllowedOrigins, origin)
}

// Manager upgrades websocket requests and tracks the open connections.
type Manager struct {
	app      RoomApp
	gauge    ConnGauge
	config   Config
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*Connection
}

func NewManager(app RoomApp, config Config, gauge ConnGauge) *Manager {
	if gauge == nil {
		gauge = noopGauge{}
	}
	return &Manager{
		app:    app,
		gauge:  gauge,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.checkOrigin,
		},
		conns: make(map[string]*Connection),
	}
}

// ServeHTTP upgrades the request. An optional room_code query parameter
// subscribes the connection to that room straight away.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	c := newConnection(uuid.NewString(), ws, m)
	m.register(c)

	go c.writePump()

	// Inbound messages are read only once the query subscription is in
	// place, so an early join cannot overtake it.
	c.sendConnected()
	if code := r.URL.Query().Get("room_code"); code != "" {
		c.subscribe(code)
	}
	go c.readPump()

	log.Info().
		Str("connection_id", c.id).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")
}

func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	m.conns[c.id] = c
	total := len(m.conns)
	m.mu.Unlock()

	m.gauge.ClientConnected()
	log.Debug().Str("connection_id", c.id).Int("total_connections", total).Msg("connection registered")
}

func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	_, ok := m.conns[c.id]
	delete(m.conns, c.id)
	m.mu.Unlock()
	if !ok {
		return
	}

	if code := c.Room(); code != "" {
		m.app.Unsubscribe(code, c.id)
	}
	m.gauge.ClientDisconnected()
	log.Info().
		Str("connection_id", c.id).
		Str("room_code", c.Room()).
		Dur("connected_for", time.Since(c.connectedAt)).
		Msg("connection unregistered")
}

// Len returns the number of open connections.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Shutdown closes every open connection.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
	log.Info().Int("connections", len(conns)).Msg("gateway shut down")
}

func (m *Manager) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.config.RequestTimeout)
}
