package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// SnapshotID is the reserved identity of the index snapshot record.
	SnapshotID = "__INDEX__"
	// SystemTable is the reserved table carrying system records.
	SystemTable = "__SYSTEM__"
)

// User facing document type, represents a JSON object.
//
//	"id" field is reserved for the document ID, format <unixMillis>-<token>.
//	"table" field is reserved for the table name, stamped at insert time.
type Document map[string]interface{}

// NewID returns a fresh document ID. The millisecond prefix makes IDs
// roughly sortable by creation time; the token never participates in
// ordering.
func NewID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}

// IDTimestamp parses the creation timestamp prefix of a document ID,
// the portion before the first '-'. Returns false if the ID does not
// carry a numeric prefix.
func IDTimestamp(id string) (int64, bool) {
	prefix, _, found := strings.Cut(id, "-")
	if !found {
		return 0, false
	}
	ms, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

func (doc Document) GetID() string {
	if id, ok := doc["id"].(string); ok {
		return id
	}
	return ""
}

func (doc Document) SetID(id string) {
	doc["id"] = id
}

func (doc Document) GenerateIDIfEmpty() {
	if doc.GetID() == "" {
		doc["id"] = NewID()
	}
}

func (doc Document) GetTable() string {
	if table, ok := doc["table"].(string); ok {
		return table
	}
	return ""
}

func (doc Document) SetTable(table string) {
	doc["table"] = table
}

// IsSystem reports whether the document carries a reserved identity.
func (doc Document) IsSystem() bool {
	return doc.GetID() == SnapshotID || doc.GetTable() == SystemTable
}

func (doc Document) HasKey(key string) bool {
	_, exists := doc[key]
	return exists
}

func (doc Document) Validate() error {
	if doc == nil {
		return errors.New("document cannot be nil")
	}
	if idVal, ok := doc["id"]; ok {
		id, ok := idVal.(string)
		if !ok {
			return errors.New("document field 'id' must be a string")
		}
		if id == "" {
			return errors.New("document field 'id' cannot be empty")
		}
	}
	return nil
}

// Clone returns a deep copy. Nested maps and slices are copied so that
// index-held documents cannot be mutated through results handed to
// callers.
func (doc Document) Clone() Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Document:
		return map[string]interface{}(val.Clone())
	case map[string]interface{}:
		return map[string]interface{}(Document(val).Clone())
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Merge deep-merges patch into doc. Nested maps are merged key by key,
// any other value is overwritten. doc is modified in place.
func (doc Document) Merge(patch Document) {
	for k, v := range patch {
		patchMap, patchIsMap := asMap(v)
		if patchIsMap {
			if existing, ok := asMap(doc[k]); ok {
				merged := Document(existing)
				merged.Merge(Document(patchMap))
				doc[k] = map[string]interface{}(merged)
				continue
			}
			doc[k] = map[string]interface{}(Document(patchMap).Clone())
			continue
		}
		doc[k] = cloneValue(v)
	}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch val := v.(type) {
	case map[string]interface{}:
		return val, true
	case Document:
		return val, true
	case Filter:
		return val, true
	default:
		return nil, false
	}
}
