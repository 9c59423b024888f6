// Package store orchestrates the codec, the filter engine, and the
// document index into a CRUD surface persisted through a message
// channel.
//
// Durability caveat: state lives in the channel's message history. A
// fresh process recovers only by replaying that history (seeded by the
// latest snapshot record); there is no durable local state. Deletion
// relies on the channel message actually being removed, so a failed
// remote delete resurrects the document on the next replay.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"teledb/internal/channel"
	"teledb/internal/codec"
	"teledb/internal/config"
	"teledb/internal/index"
	"teledb/pkg/model"
)

// Store is the document store. All operations serialize on one mutex:
// every multi-step sequence (match, mutate, send, index) is a single
// critical section so concurrent callers cannot interleave lost
// updates.
type Store struct {
	cfg   config.StoreConfig
	ch    channel.Channel
	codec *codec.Codec
	idx   *index.Index

	mu          sync.Mutex
	initialized bool

	// lastSeen is the highest channel message ID this store has sent
	// or replayed. The listener skips anything at or below it, which
	// keeps echoes of our own sends from resurrecting deleted
	// documents.
	lastSeen atomic.Int64

	listenCancel context.CancelFunc
	listenDone   chan struct{}
}

// New creates a store over the given channel. maxPayload is the
// channel's message size limit in bytes.
func New(cfg config.StoreConfig, maxPayload int, ch channel.Channel) *Store {
	c := codec.New(cfg.Prefix, maxPayload)
	return &Store{
		cfg:   cfg,
		ch:    ch,
		codec: c,
		idx:   index.New(c),
	}
}

// Initialize rehydrates the index from channel history and starts the
// live listener. It is the only call allowed to fail hard: without it
// there is no usable store. Other operations trigger it lazily.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(ctx)
}

func (s *Store) initLocked(ctx context.Context) error {
	if s.initialized {
		return nil
	}

	if err := s.rehydrateLocked(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	msgs, err := s.ch.Subscribe(listenCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("initialize: subscribe: %w", err)
	}

	s.listenCancel = cancel
	s.listenDone = make(chan struct{})
	go s.listen(msgs)

	s.initialized = true
	slog.Info("Store initialized", "documents", s.idx.Len(), "prefix", s.cfg.Prefix)
	return nil
}

// Close stops the listener and closes the channel.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}
	s.listenCancel()
	<-s.listenDone
	s.initialized = false
	return s.ch.Close()
}

func (s *Store) ensureInitLocked(ctx context.Context) error {
	if s.initialized {
		return nil
	}
	if err := s.initLocked(ctx); err != nil {
		return errors.Join(model.ErrNotInitialized, err)
	}
	return nil
}

// rehydrateLocked rebuilds the index by replaying channel history.
func (s *Store) rehydrateLocked(ctx context.Context) error {
	history, err := s.ch.History(ctx)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	s.idx.Rehydrate(history)
	for _, msg := range history {
		s.advanceLastSeen(msg.ID)
	}
	slog.Debug("Rehydrated index", "messages", len(history), "documents", s.idx.Len())
	return nil
}

// rehydrateIfEmptyLocked performs at most one rehydration pass before
// a read concludes "no data".
func (s *Store) rehydrateIfEmptyLocked(ctx context.Context) error {
	if s.idx.Len() > 0 {
		return nil
	}
	return s.rehydrateLocked(ctx)
}

func (s *Store) advanceLastSeen(id int64) {
	for {
		cur := s.lastSeen.Load()
		if id <= cur || s.lastSeen.CompareAndSwap(cur, id) {
			return
		}
	}
}

// listen applies live channel messages to the index until the
// subscription closes. Foreign payloads are skipped silently; echoes
// of this store's own sends are filtered by message ID.
func (s *Store) listen(msgs <-chan channel.Message) {
	defer close(s.listenDone)

	for msg := range msgs {
		if msg.ID <= s.lastSeen.Load() {
			continue
		}
		s.advanceLastSeen(msg.ID)

		// Snapshot prefix extends the document prefix, test it first.
		if snap, ok := s.codec.DecodeSnapshot(msg.Payload); ok {
			s.idx.ApplySnapshot(snap, msg.ID)
			slog.Debug("Applied snapshot from channel", "message_id", msg.ID, "documents", len(snap.Documents))
			continue
		}
		if doc, ok := s.codec.Decode(msg.Payload); ok {
			s.idx.Upsert(doc, msg.ID)
			slog.Debug("Applied document from channel", "message_id", msg.ID, "id", doc.GetID())
		}
	}
}

// sendWithRetry sends a payload, retrying transient failures with
// linear backoff (attempt * retry delay). The last error surfaces
// after the retry budget is exhausted.
func (s *Store) sendWithRetry(ctx context.Context, payload string) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		id, err := s.ch.Send(ctx, payload)
		if err == nil {
			s.advanceLastSeen(id)
			return id, nil
		}
		lastErr = err
		slog.Warn("Send failed", "attempt", attempt, "max", s.cfg.MaxRetries, "error", err)

		if attempt < s.cfg.MaxRetries {
			if err := sleep(ctx, time.Duration(attempt)*s.cfg.RetryDelay); err != nil {
				return 0, errors.Join(lastErr, err)
			}
		}
	}
	return 0, lastErr
}

// deleteBestEffort removes a channel message, tolerating every
// failure. Absence is the goal, so a missing message counts as
// success. The return value reports whether the message is known to be
// gone.
func (s *Store) deleteBestEffort(ctx context.Context, id int64) bool {
	err := s.ch.Delete(ctx, id)
	if err == nil || errors.Is(err, channel.ErrMessageNotFound) {
		return true
	}
	slog.Warn("Channel delete failed, message orphaned", "message_id", id, "error", err)
	return false
}

// publishSnapshot republishes the index mirror and supersedes the
// previous snapshot message. Best-effort: failures are logged, never
// propagated, because the snapshot is a recovery accelerator, not a
// source of truth.
func (s *Store) publishSnapshot(ctx context.Context) {
	snap := s.idx.Snapshot()
	payload, err := s.codec.EncodeSnapshot(snap)
	if err != nil {
		slog.Warn("Snapshot not published", "error", err)
		return
	}

	id, err := s.sendWithRetry(ctx, payload)
	if err != nil {
		slog.Warn("Snapshot publish failed", "error", err)
		return
	}

	if prev := s.idx.SnapshotMessageID(); prev != 0 {
		s.deleteBestEffort(ctx, prev)
	}
	s.idx.SetSnapshotMessageID(id)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
