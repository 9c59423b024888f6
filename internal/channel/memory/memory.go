// Package memory provides an in-process channel implementation. It
// backs the embedded provider and the test suites; semantics mirror
// the real transports: monotonic message IDs, history in ascending ID
// order, live fan-out to subscribers.
package memory

import (
	"context"
	"sort"
	"sync"

	"teledb/internal/channel"
)

// Channel is an in-memory channel.Channel.
type Channel struct {
	mu          sync.RWMutex
	messages    map[int64]string
	nextID      int64
	subscribers map[int64]*subscription
	nextSubID   int64
	closed      bool
}

type subscription struct {
	ch     chan channel.Message
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an empty in-memory channel.
func New() *Channel {
	return &Channel{
		messages:    make(map[int64]string),
		subscribers: make(map[int64]*subscription),
		nextID:      1,
	}
}

// Send appends a payload and returns its assigned message ID.
func (c *Channel) Send(ctx context.Context, payload string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, channel.ErrChannelClosed
	}
	id := c.nextID
	c.nextID++
	c.messages[id] = payload
	c.mu.Unlock()

	// Fan out under the read lock: closing a subscriber channel
	// requires the write lock, so every channel still in the map is
	// open while we hold it.
	msg := channel.Message{ID: id, Payload: payload}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return id, nil
	}
	for _, sub := range c.subscribers {
		select {
		case sub.ch <- msg:
		case <-sub.ctx.Done():
		case <-ctx.Done():
			return id, nil
		}
	}
	return id, nil
}

// Delete removes a message from history.
func (c *Channel) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return channel.ErrChannelClosed
	}
	if _, ok := c.messages[id]; !ok {
		return channel.ErrMessageNotFound
	}
	delete(c.messages, id)
	return nil
}

// History returns all surviving messages in ascending ID order.
func (c *Channel) History(ctx context.Context) ([]channel.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, channel.ErrChannelClosed
	}

	out := make([]channel.Message, 0, len(c.messages))
	for id, payload := range c.messages {
		out = append(out, channel.Message{ID: id, Payload: payload})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Subscribe returns a channel of messages sent after this call. The
// stream ends when ctx is cancelled or the channel closes.
func (c *Channel) Subscribe(ctx context.Context) (<-chan channel.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, channel.ErrChannelClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ch:     make(chan channel.Message, 64),
		ctx:    subCtx,
		cancel: cancel,
	}
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = sub

	go func() {
		<-subCtx.Done()
		c.mu.Lock()
		if existing, ok := c.subscribers[id]; ok && existing == sub {
			delete(c.subscribers, id)
			close(sub.ch)
		}
		c.mu.Unlock()
	}()

	return sub.ch, nil
}

// Close shuts down the channel and all subscriptions.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for id, sub := range c.subscribers {
		delete(c.subscribers, id)
		sub.cancel()
		close(sub.ch)
	}
	return nil
}

// Len reports the number of surviving messages. Test helper.
func (c *Channel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

var _ channel.Channel = (*Channel)(nil)
