// Package codec defines the on-the-wire framing of channel payloads.
// Every message the store owns is either a document record
// (prefix + JSON) or a snapshot record (prefix + "INDEX:" + JSON).
// Anything else in the channel is foreign and must decode to nothing.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"teledb/pkg/model"
)

// snapshotSuffix extends the document prefix to form the snapshot
// prefix. Because of that containment, decode dispatch must always
// test the snapshot prefix first.
const snapshotSuffix = "INDEX:"

// Snapshot is the serialized mirror of the index published to the
// channel for restart recovery. It is derivable from the index at any
// point and is never an independent source of truth.
type Snapshot struct {
	ID           string                    `json:"id"`
	Table        string                    `json:"table"`
	MessageIndex map[string]int64          `json:"messageIndex"`
	Documents    map[string]model.Document `json:"documents"`
	UpdatedAt    int64                     `json:"updatedAt"`
}

// NewSnapshot builds a snapshot record carrying the given index state.
func NewSnapshot(messageIndex map[string]int64, documents map[string]model.Document) Snapshot {
	return Snapshot{
		ID:           model.SnapshotID,
		Table:        model.SystemTable,
		MessageIndex: messageIndex,
		Documents:    documents,
		UpdatedAt:    time.Now().UnixMilli(),
	}
}

// Codec serializes documents and snapshots to prefixed payloads and
// back. maxPayload is the channel's message size limit; payloads that
// would exceed it are rejected, never truncated.
type Codec struct {
	prefix         string
	snapshotPrefix string
	maxPayload     int
}

// New creates a codec for the given document prefix.
func New(prefix string, maxPayload int) *Codec {
	return &Codec{
		prefix:         prefix,
		snapshotPrefix: prefix + snapshotSuffix,
		maxPayload:     maxPayload,
	}
}

// Prefix returns the document prefix.
func (c *Codec) Prefix() string {
	return c.prefix
}

// SnapshotPrefix returns the snapshot prefix.
func (c *Codec) SnapshotPrefix() string {
	return c.snapshotPrefix
}

// Encode serializes a document to a prefixed payload.
func (c *Codec) Encode(doc model.Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document %q: %w", doc.GetID(), err)
	}
	return c.frame(c.prefix, data)
}

// Decode parses a document payload. It returns false when the payload
// is not a document record: wrong prefix, snapshot record, or invalid
// JSON. Decode never fails; callers treat false as "not ours, skip".
func (c *Codec) Decode(payload string) (model.Document, bool) {
	if strings.HasPrefix(payload, c.snapshotPrefix) {
		return nil, false
	}
	rest, ok := strings.CutPrefix(payload, c.prefix)
	if !ok {
		return nil, false
	}
	var doc model.Document
	if err := json.Unmarshal([]byte(rest), &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// EncodeSnapshot serializes a snapshot record to a prefixed payload.
func (c *Codec) EncodeSnapshot(snap Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return c.frame(c.snapshotPrefix, data)
}

// DecodeSnapshot parses a snapshot payload, returning false for
// anything that is not a well-formed snapshot record.
func (c *Codec) DecodeSnapshot(payload string) (Snapshot, bool) {
	rest, ok := strings.CutPrefix(payload, c.snapshotPrefix)
	if !ok {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(rest), &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

func (c *Codec) frame(prefix string, data []byte) (string, error) {
	payload := prefix + string(data)
	if c.maxPayload > 0 && len(payload) > c.maxPayload {
		return "", fmt.Errorf("%w: %d bytes exceeds channel limit of %d",
			model.ErrPayloadTooLarge, len(payload), c.maxPayload)
	}
	return payload, nil
}
