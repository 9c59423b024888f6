package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teledb/pkg/model"
)

func newTestCodec() *Codec {
	return New("TDB:", 4096)
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec()
	doc := model.Document{
		"id":    "1700000000000-abcd1234",
		"table": "users",
		"name":  "John",
		"address": map[string]interface{}{
			"city": "London",
			"geo":  map[string]interface{}{"lat": 51.5},
		},
		"tags": []interface{}{"a", "b"},
	}

	payload, err := c.Encode(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(payload, "TDB:"))

	decoded, ok := c.Decode(payload)
	require.True(t, ok)
	assert.Equal(t, doc, decoded)
}

func TestDecodeForeignPayloads(t *testing.T) {
	c := newTestCodec()

	tests := []struct {
		name    string
		payload string
	}{
		{"no prefix", `{"id":"x"}`},
		{"other prefix", "OTHER:" + `{"id":"x"}`},
		{"invalid json", "TDB:not json at all"},
		{"plain chat message", "hey, anyone here?"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.Decode(tt.payload)
			assert.False(t, ok)
		})
	}
}

func TestPrefixDisjointness(t *testing.T) {
	c := newTestCodec()

	snap := NewSnapshot(
		map[string]int64{"a": 1},
		map[string]model.Document{"a": {"id": "a", "table": "users"}},
	)
	payload, err := c.EncodeSnapshot(snap)
	require.NoError(t, err)

	// A snapshot payload must never decode as a plain document, even
	// though its prefix extends the document prefix.
	_, ok := c.Decode(payload)
	assert.False(t, ok)

	decoded, ok := c.DecodeSnapshot(payload)
	require.True(t, ok)
	assert.Equal(t, model.SnapshotID, decoded.ID)
	assert.Equal(t, model.SystemTable, decoded.Table)
	assert.Equal(t, snap.MessageIndex, decoded.MessageIndex)
	assert.Equal(t, snap.Documents, decoded.Documents)

	// And a plain document payload is never a snapshot.
	docPayload, err := c.Encode(model.Document{"id": "a"})
	require.NoError(t, err)
	_, ok = c.DecodeSnapshot(docPayload)
	assert.False(t, ok)
}

func TestEncodeTooLarge(t *testing.T) {
	c := New("TDB:", 64)
	doc := model.Document{"id": "a", "blob": strings.Repeat("x", 128)}

	_, err := c.Encode(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPayloadTooLarge))
}

func TestEncodeSnapshotTooLarge(t *testing.T) {
	c := New("TDB:", 64)
	snap := NewSnapshot(
		map[string]int64{"a": 1},
		map[string]model.Document{"a": {"id": "a", "blob": strings.Repeat("x", 128)}},
	)

	_, err := c.EncodeSnapshot(snap)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPayloadTooLarge))
}

func TestSnapshotRoundTripNumbers(t *testing.T) {
	c := newTestCodec()
	snap := NewSnapshot(
		map[string]int64{"doc-1": 42},
		map[string]model.Document{"doc-1": {"id": "doc-1", "count": float64(7)}},
	)

	payload, err := c.EncodeSnapshot(snap)
	require.NoError(t, err)

	decoded, ok := c.DecodeSnapshot(payload)
	require.True(t, ok)
	assert.Equal(t, int64(42), decoded.MessageIndex["doc-1"])
	assert.Equal(t, float64(7), decoded.Documents["doc-1"]["count"])
}
