package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/auction/events"
)

// MsgPublisher is the part of jetstream.JetStream the Publisher needs.
type MsgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher forwards room events to JetStream from a single goroutine. Publish
// never blocks the room; when the buffer is full the event is dropped and
// counted.
type Publisher struct {
	js      MsgPublisher
	cfg     Config
	queue   chan *events.Event
	dropped atomic.Uint64
}

func NewPublisher(js MsgPublisher, cfg Config) *Publisher {
	if cfg.Buffer < 1 {
		cfg.Buffer = 1
	}
	return &Publisher{
		js:    js,
		cfg:   cfg,
		queue: make(chan *events.Event, cfg.Buffer),
	}
}

// Publish queues e. Connection-scoped events are not mirrored.
func (p *Publisher) Publish(e *events.Event) {
	switch e.Type {
	case events.TypeError, events.TypeConnected, events.TypeRoomState:
		return
	}
	select {
	case p.queue <- e:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Warn().Uint64("dropped", n).Str("room_code", e.RoomCode).Msg("event bus buffer full, dropping events")
		}
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Run publishes queued events until ctx is cancelled, then drains what is
// left with a short deadline.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case e := <-p.queue:
			p.send(ctx, e)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-p.queue:
			p.send(ctx, e)
		default:
			return
		}
	}
}

func (p *Publisher) send(ctx context.Context, e *events.Event) {
	if err := p.publish(ctx, e); err != nil {
		log.Error().Err(err).
			Str("event_id", e.ID).
			Str("room_code", e.RoomCode).
			Str("event_type", string(e.Type)).
			Msg("failed to publish event")
	}
}

func (p *Publisher) publish(ctx context.Context, e *events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := Subject(p.cfg.SubjectPrefix, e.RoomCode, e.Type)

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(e.Type)},
			"Room-Code":  []string{e.RoomCode},
			"Event-ID":   []string{e.ID},
		},
	},
		jetstream.WithMsgID(e.ID),
		jetstream.WithExpectStream(p.cfg.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", e.ID).
		Uint64("sequence", ack.Sequence).
		Msg("published to JetStream")
	return nil
}
