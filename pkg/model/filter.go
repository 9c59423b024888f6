package model

import (
	"reflect"
	"strings"
)

// Filter is a flat query predicate: field path -> condition. A condition
// is a literal value, a sequence (membership), or an operator object
// such as {"$gt": 18}. Multiple fields are an implicit AND.
type Filter map[string]interface{}

// CondKind tags the three condition shapes a filter value can take.
type CondKind int

const (
	CondLiteral CondKind = iota
	CondMembership
	CondOperators
)

// Cond is a classified filter condition. Exactly one of Literal,
// Members, or Ops is meaningful, selected by Kind.
type Cond struct {
	Kind    CondKind
	Literal interface{}
	Members []interface{}
	Ops     map[string]interface{}
}

// Classify resolves the duck-typed condition shape into a tagged
// variant so the match engine can dispatch explicitly instead of
// shape-sniffing at every operator.
func Classify(v interface{}) Cond {
	if v == nil {
		return Cond{Kind: CondLiteral, Literal: nil}
	}
	if ops, ok := operatorObject(v); ok {
		return Cond{Kind: CondOperators, Ops: ops}
	}
	if members, ok := asSlice(v); ok {
		return Cond{Kind: CondMembership, Members: members}
	}
	return Cond{Kind: CondLiteral, Literal: v}
}

// operatorObject reports whether v is a map whose keys are all
// operator names ("$"-prefixed). A map mixing operator and plain keys
// is treated as a literal nested-document match.
func operatorObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := asMap(v)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

// asSlice normalizes any slice or array value to []interface{}.
func asSlice(v interface{}) ([]interface{}, bool) {
	if items, ok := v.([]interface{}); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// WithTable returns a copy of the filter augmented with the table
// field. The receiver is not modified.
func (f Filter) WithTable(table string) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out["table"] = table
	return out
}

// HasOperators reports whether any field condition is an operator
// object. Such filters cannot seed an upsert.
func (f Filter) HasOperators() bool {
	for _, v := range f {
		if Classify(v).Kind == CondOperators {
			return true
		}
	}
	return false
}

// Literals returns the literal-valued fields of the filter as a
// document, used to synthesize the seed document of an upsert.
func (f Filter) Literals() Document {
	out := make(Document)
	for k, v := range f {
		if Classify(v).Kind == CondLiteral {
			out[k] = v
		}
	}
	return out
}
