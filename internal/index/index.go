// Package index holds the in-memory projection of the channel's
// document messages, keyed by document ID. It is the store's sole
// read path; the channel is only consulted to (re)build it.
//
// The index is rebuilt by replaying channel history ("rehydration").
// Deletion has no tombstone: a document survives a replay iff its
// message survived in the channel, so a failed channel-delete
// resurrects the document on the next rehydration. That gap is part of
// the design contract, not an accident.
package index

import (
	"sort"
	"sync"

	"teledb/internal/channel"
	"teledb/internal/codec"
	"teledb/pkg/model"
)

// Entry pairs a document with the channel message currently carrying
// it. MessageID always refers to the most recent message for the ID.
type Entry struct {
	Doc       model.Document
	MessageID int64
}

// Index is the in-memory document index. It is safe for concurrent
// use; multi-step store operations additionally serialize above it.
type Index struct {
	mu            sync.RWMutex
	entries       map[string]Entry
	order         []string // insertion order, replay order after rehydration
	snapshotMsgID int64
	codec         *codec.Codec
}

// New creates an empty index that recognizes payloads framed by c.
func New(c *codec.Codec) *Index {
	return &Index{
		entries: make(map[string]Entry),
		codec:   c,
	}
}

// Upsert inserts or overwrites the entry for the document's ID.
func (idx *Index) Upsert(doc model.Document, messageID int64) {
	id := doc.GetID()
	if id == "" {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.upsertLocked(id, doc, messageID)
}

func (idx *Index) upsertLocked(id string, doc model.Document, messageID int64) {
	if _, exists := idx.entries[id]; !exists {
		idx.order = append(idx.order, id)
	}
	idx.entries[id] = Entry{Doc: doc, MessageID: messageID}
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
func (idx *Index) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.entries[id]; !exists {
		return
	}
	delete(idx.entries, id)
	for i, existing := range idx.order {
		if existing == id {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
}

// Get returns the entry for id.
func (idx *Index) Get(id string) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.entries[id]
	return entry, ok
}

// All returns every entry in insertion order. The documents are the
// index's own copies; callers that hand them out must clone.
func (idx *Index) All() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]Entry, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, idx.entries[id])
	}
	return out
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Tables returns the sorted set of table names, reserved identities
// excluded.
func (idx *Index) Tables() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]bool)
	for _, entry := range idx.entries {
		table := entry.Doc.GetTable()
		if table == "" || table == model.SystemTable || entry.Doc.GetID() == model.SnapshotID {
			continue
		}
		seen[table] = true
	}

	out := make([]string, 0, len(seen))
	for table := range seen {
		out = append(out, table)
	}
	sort.Strings(out)
	return out
}

// Snapshot captures the current index state as a snapshot record.
func (idx *Index) Snapshot() codec.Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	messageIndex := make(map[string]int64, len(idx.entries))
	documents := make(map[string]model.Document, len(idx.entries))
	for id, entry := range idx.entries {
		messageIndex[id] = entry.MessageID
		documents[id] = entry.Doc.Clone()
	}
	return codec.NewSnapshot(messageIndex, documents)
}

// SnapshotMessageID returns the channel message carrying the current
// live snapshot, or zero when none is known.
func (idx *Index) SnapshotMessageID() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.snapshotMsgID
}

// SetSnapshotMessageID records the message carrying the live snapshot.
func (idx *Index) SetSnapshotMessageID(id int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.snapshotMsgID = id
}

// ApplySnapshot replaces the entire index with the snapshot's contents
// and records the carrying message. Entries are ordered by their
// message IDs so a subsequent scan approximates channel chronology.
func (idx *Index) ApplySnapshot(snap codec.Snapshot, messageID int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.applySnapshotLocked(snap, messageID)
}

func (idx *Index) applySnapshotLocked(snap codec.Snapshot, messageID int64) {
	idx.entries = make(map[string]Entry, len(snap.Documents))
	idx.order = idx.order[:0]

	ids := make([]string, 0, len(snap.Documents))
	for id := range snap.Documents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		mi, mj := snap.MessageIndex[ids[i]], snap.MessageIndex[ids[j]]
		if mi != mj {
			return mi < mj
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		idx.upsertLocked(id, snap.Documents[id], snap.MessageIndex[id])
	}
	idx.snapshotMsgID = messageID
}

// Rehydrate rebuilds the index as a pure fold over channel history in
// ascending message ID order. A snapshot record seeds the index
// wholesale; later document records supersede the snapshot's copy
// entry by entry. Foreign payloads are skipped. Replaying the same
// history twice yields an identical index.
func (idx *Index) Rehydrate(history []channel.Message) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = make(map[string]Entry)
	idx.order = idx.order[:0]
	idx.snapshotMsgID = 0

	for _, msg := range history {
		if snap, ok := idx.codec.DecodeSnapshot(msg.Payload); ok {
			idx.applySnapshotLocked(snap, msg.ID)
			continue
		}
		doc, ok := idx.codec.Decode(msg.Payload)
		if !ok {
			continue
		}
		if id := doc.GetID(); id != "" {
			idx.upsertLocked(id, doc, msg.ID)
		}
	}
}
