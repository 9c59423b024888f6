package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		kind CondKind
	}{
		{"nil literal", nil, CondLiteral},
		{"string literal", "Paris", CondLiteral},
		{"number literal", 42, CondLiteral},
		{"slice membership", []interface{}{"a", "b"}, CondMembership},
		{"typed slice membership", []string{"a", "b"}, CondMembership},
		{"operator object", map[string]interface{}{"$gt": 18}, CondOperators},
		{"multi operator object", map[string]interface{}{"$gte": 1, "$lt": 10}, CondOperators},
		{"plain map is literal", map[string]interface{}{"city": "Paris"}, CondLiteral},
		{"mixed map is literal", map[string]interface{}{"$gt": 1, "city": "Paris"}, CondLiteral},
		{"empty map is literal", map[string]interface{}{}, CondLiteral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, Classify(tt.in).Kind)
		})
	}
}

func TestClassifyMembers(t *testing.T) {
	cond := Classify([]string{"Paris", "Berlin"})
	assert.Equal(t, CondMembership, cond.Kind)
	assert.Equal(t, []interface{}{"Paris", "Berlin"}, cond.Members)
}

func TestWithTable(t *testing.T) {
	f := Filter{"name": "John"}
	augmented := f.WithTable("users")
	assert.Equal(t, Filter{"name": "John", "table": "users"}, augmented)
	assert.NotContains(t, f, "table")
}

func TestHasOperators(t *testing.T) {
	assert.False(t, Filter{"name": "John"}.HasOperators())
	assert.True(t, Filter{"age": map[string]interface{}{"$gt": 18}}.HasOperators())
}

func TestLiterals(t *testing.T) {
	f := Filter{
		"name": "New",
		"age":  map[string]interface{}{"$gt": 18},
		"tags": []interface{}{"a"},
	}
	assert.Equal(t, Document{"name": "New"}, f.Literals())
}
