package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/auction/events"
	"github.com/mcdev12/bidroom/go/internal/models"
)

// Connection is one websocket client. It watches at most one room at a time
// and owns at most one team per room.
type Connection struct {
	id      string
	ws      *websocket.Conn
	manager *Manager
	send    chan []byte
	done    chan struct{}
	once    sync.Once

	mu          sync.Mutex
	room        string
	connectedAt time.Time
	lastPing    time.Time
}

func newConnection(id string, ws *websocket.Conn, m *Manager) *Connection {
	now := time.Now()
	return &Connection{
		id:          id,
		ws:          ws,
		manager:     m,
		send:        make(chan []byte, m.config.SendBuffer),
		done:        make(chan struct{}),
		connectedAt: now,
		lastPing:    now,
	}
}

func (c *Connection) ID() string { return c.id }

// Room returns the code of the room the connection watches.
func (c *Connection) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Connection) setRoom(code string) {
	c.mu.Lock()
	c.room = code
	c.mu.Unlock()
}

// Deliver queues msg for writing. A connection whose buffer is full is
// closed.
func (c *Connection) Deliver(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		log.Warn().Str("connection_id", c.id).Msg("connection send buffer full, closing connection")
		c.close()
		return false
	}
}

func (c *Connection) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Connection) sendEvent(code string, t events.Type, payload any) {
	e, err := events.New(code, t, payload, time.Now())
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.id).Msg("failed to build event")
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.id).Msg("failed to marshal event")
		return
	}
	c.Deliver(data)
}

func (c *Connection) sendConnected() {
	c.sendEvent("", events.TypeConnected, events.ConnectedPayload{ConnectionID: c.id})
}

func (c *Connection) sendState(room *models.Room) {
	c.sendEvent(room.Code, events.TypeRoomState, events.RoomStatePayload{Room: room})
}

// sendError reports a rejected request to this connection only.
func (c *Connection) sendError(code string, err error) {
	c.sendEvent(code, events.TypeError, events.ErrorPayload{Message: err.Error(), Code: auction.Code(err)})
}

func (c *Connection) writePump() {
	cfg := c.manager.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	cfg := c.manager.config
	defer func() {
		c.manager.unregister(c)
		c.close()
	}()

	c.ws.SetReadLimit(cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPing = time.Now()
		c.mu.Unlock()
		return c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		_ = c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}

func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError(c.Room(), fmt.Errorf("%w: malformed message", auction.ErrInvalidArgument))
		return
	}

	log.Debug().
		Str("connection_id", c.id).
		Str("type", msg.Type).
		Msg("received client message")

	switch msg.Type {
	case MsgJoinRoom:
		c.joinRoom(msg.Data)
	case MsgPlaceBid:
		c.placeBid(msg.Data)
	case MsgSubscribe:
		c.subscribeMessage(msg.Data)
	default:
		c.sendError(c.Room(), fmt.Errorf("%w: unknown message type %q", auction.ErrInvalidArgument, msg.Type))
	}
}

func (c *Connection) joinRoom(data json.RawMessage) {
	var req JoinRoomRequest
	if err := decodeRequest(data, &req); err != nil {
		c.sendError(c.Room(), err)
		return
	}
	app := c.manager.app

	// The joiner must be subscribed before the join to see its own team_joined.
	prev := c.Room()
	fresh := prev != req.RoomCode
	if fresh {
		if _, err := app.Subscribe(req.RoomCode, c); err != nil {
			c.sendError(req.RoomCode, err)
			return
		}
	}

	ctx, cancel := c.manager.requestContext()
	defer cancel()
	team, room, err := app.JoinRoom(ctx, req.RoomCode, req.TeamName, c.id)
	if err != nil {
		if fresh {
			app.Unsubscribe(req.RoomCode, c.id)
		}
		c.sendError(req.RoomCode, err)
		return
	}

	if fresh && prev != "" {
		app.Unsubscribe(prev, c.id)
	}
	c.setRoom(req.RoomCode)
	c.sendState(room)

	log.Info().
		Str("connection_id", c.id).
		Str("room_code", req.RoomCode).
		Str("team_id", team.ID.String()).
		Msg("connection joined room")
}

func (c *Connection) placeBid(data json.RawMessage) {
	var req PlaceBidRequest
	if err := decodeRequest(data, &req); err != nil {
		c.sendError(c.Room(), err)
		return
	}
	code := req.RoomCode
	if code == "" {
		code = c.Room()
	}
	if code == "" {
		c.sendError("", auction.ErrRoomNotFound)
		return
	}

	ctx, cancel := c.manager.requestContext()
	defer cancel()
	if _, err := c.manager.app.PlaceBid(ctx, code, c.id, req.BidAmount); err != nil {
		c.sendError(code, err)
	}
}

func (c *Connection) subscribeMessage(data json.RawMessage) {
	var req SubscribeRequest
	if err := decodeRequest(data, &req); err != nil {
		c.sendError(c.Room(), err)
		return
	}
	c.subscribe(req.RoomCode)
}

// subscribe switches the connection to watch code and sends it the room's
// current state.
func (c *Connection) subscribe(code string) {
	app := c.manager.app
	prev := c.Room()

	room, err := app.Subscribe(code, c)
	if err != nil {
		c.sendError(code, err)
		return
	}
	if prev != "" && prev != code {
		app.Unsubscribe(prev, c.id)
	}
	c.setRoom(code)
	c.sendState(room)
}
