package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type ConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		StreamName:    "AUCTION_EVENTS",
		ConsumerName:  "auction-archive",
		SubjectFilter: "auction.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// HandlerFunc processes one message body.
type HandlerFunc func(ctx context.Context, data []byte) error

// Msg is the part of jetstream.Msg the consumer acts on.
type Msg interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
	Term() error
}

// Consumer feeds every event of the stream to a handler through a durable
// JetStream consumer.
type Consumer struct {
	consumer jetstream.Consumer
	handle   HandlerFunc
	cfg      ConsumerConfig
}

// NewConsumer creates the durable consumer if it does not exist yet.
func NewConsumer(ctx context.Context, js jetstream.JetStream, cfg ConsumerConfig, handle HandlerFunc) (*Consumer, error) {
	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          cfg.ConsumerName,
		Durable:       cfg.ConsumerName,
		Description:   "Auction event archive",
		FilterSubject: cfg.SubjectFilter,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    cfg.MaxDeliver,
		AckWait:       cfg.AckWait,
		MaxAckPending: cfg.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	log.Info().
		Str("consumer", cfg.ConsumerName).
		Str("stream", cfg.StreamName).
		Msg("JetStream consumer ready")

	return &Consumer{consumer: consumer, handle: handle, cfg: cfg}, nil
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", c.cfg.ConsumerName).
		Str("stream", c.cfg.StreamName).
		Msg("starting archive consumer")

	messages := make(chan jetstream.Msg, c.cfg.MaxAckPending)
	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messages <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("archive consumer shutting down")
			return nil
		case msg := <-messages:
			process(ctx, c.handle, msg)
		}
	}
}

// process runs handle and settles msg: ack on success, term on malformed
// data, nak otherwise so JetStream redelivers.
func process(ctx context.Context, handle HandlerFunc, msg Msg) {
	err := handle(ctx, msg.Data())
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	case errors.Is(err, ErrMalformed):
		log.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed event")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
	default:
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to archive event")
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error().Err(nakErr).Msg("failed to NAK message")
		}
	}
}
