// Package nats implements the message channel on NATS JetStream. The
// stream sequence number doubles as the channel message ID: publishing
// acks the assigned sequence, deletion removes a sequence from the
// stream, and history is a sequence-order replay of surviving messages.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"teledb/internal/channel"
	"teledb/internal/config"
)

// Test seams, same pattern as the rest of the codebase's NATS wiring.
var (
	natsConnect  = nats.Connect
	jetStreamNew = func(nc *nats.Conn) (jetstream.JetStream, error) {
		return jetstream.New(nc)
	}
)

// Channel is a JetStream-backed channel.Channel.
type Channel struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	stream  jetstream.Stream
	subject string
}

// New connects to NATS and ensures the backing stream exists.
func New(ctx context.Context, cfg config.NATSConfig) (*Channel, error) {
	nc, err := natsConnect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetStreamNew(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}

	return &Channel{
		nc:      nc,
		js:      js,
		stream:  stream,
		subject: cfg.Subject,
	}, nil
}

// Send publishes a payload and returns the stream sequence as the
// message ID.
func (c *Channel) Send(ctx context.Context, payload string) (int64, error) {
	ack, err := c.js.Publish(ctx, c.subject, []byte(payload))
	if err != nil {
		return 0, fmt.Errorf("publish to %s: %w", c.subject, err)
	}
	return int64(ack.Sequence), nil
}

// Delete removes a message from the stream by sequence.
func (c *Channel) Delete(ctx context.Context, id int64) error {
	err := c.stream.DeleteMsg(ctx, uint64(id))
	if err == nil {
		return nil
	}
	if errors.Is(err, jetstream.ErrMsgNotFound) || errors.Is(err, jetstream.ErrMsgDeleteUnsuccessful) {
		return channel.ErrMessageNotFound
	}
	return fmt.Errorf("delete message %d: %w", id, err)
}

// History walks the stream's sequence range and returns surviving
// messages in ascending order. Deleted sequences leave gaps and are
// skipped.
func (c *Channel) History(ctx context.Context) ([]channel.Message, error) {
	info, err := c.stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("stream info: %w", err)
	}

	state := info.State
	if state.Msgs == 0 {
		return nil, nil
	}

	out := make([]channel.Message, 0, state.Msgs)
	for seq := state.FirstSeq; seq <= state.LastSeq; seq++ {
		raw, err := c.stream.GetMsg(ctx, seq)
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgNotFound) {
				continue // deleted sequence
			}
			return nil, fmt.Errorf("get message %d: %w", seq, err)
		}
		out = append(out, channel.Message{
			ID:      int64(raw.Sequence),
			Payload: string(raw.Data),
		})
	}
	return out, nil
}

// Subscribe follows new stream messages through an ordered consumer.
func (c *Channel) Subscribe(ctx context.Context) (<-chan channel.Message, error) {
	cons, err := c.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	msgs := make(chan channel.Message, 64)
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		meta, err := msg.Metadata()
		if err != nil {
			slog.Debug("Dropping message without metadata", "error", err)
			return
		}
		select {
		case msgs <- channel.Message{ID: int64(meta.Sequence.Stream), Payload: string(msg.Data())}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
		// Wait for in-flight handler invocations before closing.
		<-cc.Closed()
		close(msgs)
	}()

	return msgs, nil
}

// Close drains the NATS connection.
func (c *Channel) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}

var _ channel.Channel = (*Channel)(nil)
