// Package channel abstracts the message transport standing in for
// storage media. The store only ever needs four capabilities: append a
// payload, best-effort delete a message, replay history, and follow
// live messages.
package channel

import (
	"context"
	"errors"
)

// ErrMessageNotFound is returned by Delete when the message no longer
// exists. Callers treat it as success: the goal of a delete is absence.
var ErrMessageNotFound = errors.New("message not found")

// ErrChannelClosed is returned by operations on a closed channel.
var ErrChannelClosed = errors.New("channel closed")

// Message is a single channel record. The ID is an opaque ordinal
// assigned by the transport; the store never invents one.
type Message struct {
	ID      int64
	Payload string
}

// Channel is the message transport contract.
//
// History returns past messages in ascending ID order. Real transports
// cap or paginate history, so the result may be partial; rehydration
// must tolerate that. Subscribe delivers messages that arrive after
// the subscription is live, until the context is cancelled.
type Channel interface {
	Send(ctx context.Context, payload string) (int64, error)
	Delete(ctx context.Context, id int64) error
	History(ctx context.Context) ([]Message, error)
	Subscribe(ctx context.Context) (<-chan Message, error)
	Close() error
}
