package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teledb/internal/channel"
	"teledb/internal/codec"
	"teledb/pkg/model"
)

func newTestIndex() (*Index, *codec.Codec) {
	c := codec.New("TDB:", 65536)
	return New(c), c
}

func encode(t *testing.T, c *codec.Codec, doc model.Document) string {
	t.Helper()
	payload, err := c.Encode(doc)
	require.NoError(t, err)
	return payload
}

func TestUpsertAndGet(t *testing.T) {
	idx, _ := newTestIndex()

	doc := model.Document{"id": "a", "table": "users", "name": "John"}
	idx.Upsert(doc, 10)

	entry, ok := idx.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(10), entry.MessageID)
	assert.Equal(t, "John", entry.Doc["name"])

	// Overwrite keeps a single entry and the latest message id.
	idx.Upsert(model.Document{"id": "a", "table": "users", "name": "Jane"}, 11)
	assert.Equal(t, 1, idx.Len())
	entry, _ = idx.Get("a")
	assert.Equal(t, int64(11), entry.MessageID)
	assert.Equal(t, "Jane", entry.Doc["name"])
}

func TestUpsertWithoutIDIgnored(t *testing.T) {
	idx, _ := newTestIndex()
	idx.Upsert(model.Document{"name": "nobody"}, 1)
	assert.Equal(t, 0, idx.Len())
}

func TestRemove(t *testing.T) {
	idx, _ := newTestIndex()
	idx.Upsert(model.Document{"id": "a", "table": "t"}, 1)
	idx.Upsert(model.Document{"id": "b", "table": "t"}, 2)

	idx.Remove("a")
	assert.Equal(t, 1, idx.Len())
	_, ok := idx.Get("a")
	assert.False(t, ok)

	// Removing an absent id is a no-op, not an error.
	idx.Remove("a")
	idx.Remove("never-existed")
	assert.Equal(t, 1, idx.Len())
}

func TestAllInsertionOrder(t *testing.T) {
	idx, _ := newTestIndex()
	idx.Upsert(model.Document{"id": "c", "table": "t"}, 3)
	idx.Upsert(model.Document{"id": "a", "table": "t"}, 1)
	idx.Upsert(model.Document{"id": "b", "table": "t"}, 2)

	entries := idx.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Doc.GetID())
	assert.Equal(t, "a", entries[1].Doc.GetID())
	assert.Equal(t, "b", entries[2].Doc.GetID())
}

func TestTablesExcludesReserved(t *testing.T) {
	idx, _ := newTestIndex()
	idx.Upsert(model.Document{"id": "a", "table": "users"}, 1)
	idx.Upsert(model.Document{"id": "b", "table": "orders"}, 2)
	idx.Upsert(model.Document{"id": model.SnapshotID, "table": model.SystemTable}, 3)

	assert.Equal(t, []string{"orders", "users"}, idx.Tables())
}

func TestRehydrateDocuments(t *testing.T) {
	idx, c := newTestIndex()

	history := []channel.Message{
		{ID: 1, Payload: encode(t, c, model.Document{"id": "a", "table": "users", "v": float64(1)})},
		{ID: 2, Payload: encode(t, c, model.Document{"id": "b", "table": "users", "v": float64(1)})},
		{ID: 3, Payload: "not one of ours"},
		{ID: 4, Payload: encode(t, c, model.Document{"id": "a", "table": "users", "v": float64(2)})},
	}
	idx.Rehydrate(history)

	assert.Equal(t, 2, idx.Len())
	entry, ok := idx.Get("a")
	require.True(t, ok)
	assert.Equal(t, float64(2), entry.Doc["v"])
	assert.Equal(t, int64(4), entry.MessageID)
}

func TestRehydrateSnapshotSeedsThenDocumentsSupersede(t *testing.T) {
	idx, c := newTestIndex()

	snap := codec.NewSnapshot(
		map[string]int64{"a": 1, "b": 2},
		map[string]model.Document{
			"a": {"id": "a", "table": "users", "v": float64(1)},
			"b": {"id": "b", "table": "users", "v": float64(1)},
		},
	)
	snapPayload, err := c.EncodeSnapshot(snap)
	require.NoError(t, err)

	history := []channel.Message{
		{ID: 3, Payload: snapPayload},
		{ID: 4, Payload: encode(t, c, model.Document{"id": "a", "table": "users", "v": float64(9)})},
	}
	idx.Rehydrate(history)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, int64(3), idx.SnapshotMessageID())

	entry, _ := idx.Get("a")
	assert.Equal(t, float64(9), entry.Doc["v"])
	assert.Equal(t, int64(4), entry.MessageID)

	entry, _ = idx.Get("b")
	assert.Equal(t, float64(1), entry.Doc["v"])
}

func TestRehydrateSnapshotReplacesWholesale(t *testing.T) {
	idx, c := newTestIndex()
	idx.Upsert(model.Document{"id": "stale", "table": "users"}, 1)

	snap := codec.NewSnapshot(
		map[string]int64{"fresh": 5},
		map[string]model.Document{"fresh": {"id": "fresh", "table": "users"}},
	)
	snapPayload, err := c.EncodeSnapshot(snap)
	require.NoError(t, err)

	idx.Rehydrate([]channel.Message{{ID: 6, Payload: snapPayload}})

	_, ok := idx.Get("stale")
	assert.False(t, ok)
	_, ok = idx.Get("fresh")
	assert.True(t, ok)
}

func TestRehydrateIdempotent(t *testing.T) {
	idx, c := newTestIndex()

	history := []channel.Message{
		{ID: 1, Payload: encode(t, c, model.Document{"id": "a", "table": "users", "v": float64(1)})},
		{ID: 2, Payload: encode(t, c, model.Document{"id": "b", "table": "orders", "v": float64(2)})},
		{ID: 3, Payload: encode(t, c, model.Document{"id": "a", "table": "users", "v": float64(3)})},
	}

	idx.Rehydrate(history)
	first := idx.All()

	idx.Rehydrate(history)
	second := idx.All()

	assert.Equal(t, first, second)
}

func TestSnapshotMirrorsIndex(t *testing.T) {
	idx, _ := newTestIndex()
	idx.Upsert(model.Document{"id": "a", "table": "users", "name": "John"}, 7)

	snap := idx.Snapshot()
	assert.Equal(t, model.SnapshotID, snap.ID)
	assert.Equal(t, model.SystemTable, snap.Table)
	assert.Equal(t, int64(7), snap.MessageIndex["a"])
	assert.Equal(t, "John", snap.Documents["a"]["name"])

	// Snapshot documents are copies, not aliases.
	snap.Documents["a"]["name"] = "mutated"
	entry, _ := idx.Get("a")
	assert.Equal(t, "John", entry.Doc["name"])
}
