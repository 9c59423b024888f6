// Package query evaluates flat MongoDB-style predicates against
// documents. The predicate language is intentionally small: implicit
// AND across fields, operator objects AND'd per field, no $or and no
// nested logical operators.
package query

import (
	"reflect"
	"regexp"
	"strings"

	"teledb/pkg/model"
)

// Supported operators.
const (
	opGt     = "$gt"
	opGte    = "$gte"
	opLt     = "$lt"
	opLte    = "$lte"
	opNe     = "$ne"
	opEq     = "$eq"
	opIn     = "$in"
	opNin    = "$nin"
	opRegex  = "$regex"
	opExists = "$exists"
)

// Matches reports whether the document satisfies the filter.
func Matches(doc model.Document, filter model.Filter) bool {
	for path, raw := range filter {
		cond := model.Classify(raw)

		// Identity lookups are exact: the id field is compared by
		// strict string equality regardless of operator wrapping.
		if path == "id" {
			if !matchID(doc.GetID(), cond) {
				return false
			}
			continue
		}

		value, found := Resolve(doc, path)
		if !matchCond(value, found, cond) {
			return false
		}
	}
	return true
}

// Resolve walks a dotted field path through nested maps. A missing
// intermediate or leaf yields found == false ("field value is
// undefined").
func Resolve(doc model.Document, path string) (interface{}, bool) {
	var current interface{} = map[string]interface{}(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := toMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case model.Document:
		return m, true
	default:
		return nil, false
	}
}

func matchCond(value interface{}, found bool, cond model.Cond) bool {
	switch cond.Kind {
	case model.CondMembership:
		return found && isMember(value, cond.Members)
	case model.CondOperators:
		for op, arg := range cond.Ops {
			if !applyOp(op, value, found, arg) {
				return false
			}
		}
		return true
	default:
		return found && valuesEqual(value, cond.Literal)
	}
}

// matchID applies the identity carve-out. Only equality-shaped
// operators are honored; anything else never matches.
func matchID(id string, cond model.Cond) bool {
	switch cond.Kind {
	case model.CondMembership:
		return idIn(id, cond.Members)
	case model.CondOperators:
		for op, arg := range cond.Ops {
			switch op {
			case opEq:
				s, ok := arg.(string)
				if !ok || s != id {
					return false
				}
			case opNe:
				if s, ok := arg.(string); ok && s == id {
					return false
				}
			case opIn:
				members, ok := toSlice(arg)
				if !ok || !idIn(id, members) {
					return false
				}
			case opNin:
				members, ok := toSlice(arg)
				if !ok || idIn(id, members) {
					return false
				}
			default:
				return false
			}
		}
		return true
	default:
		literal, ok := cond.Literal.(string)
		return ok && literal == id
	}
}

func idIn(id string, members []interface{}) bool {
	for _, m := range members {
		if s, ok := m.(string); ok && s == id {
			return true
		}
	}
	return false
}

func applyOp(op string, value interface{}, found bool, arg interface{}) bool {
	switch op {
	case opGt:
		cmp, ok := compareValues(value, arg)
		return found && ok && cmp > 0
	case opGte:
		cmp, ok := compareValues(value, arg)
		return found && ok && cmp >= 0
	case opLt:
		cmp, ok := compareValues(value, arg)
		return found && ok && cmp < 0
	case opLte:
		cmp, ok := compareValues(value, arg)
		return found && ok && cmp <= 0
	case opEq:
		return found && valuesEqual(value, arg)
	case opNe:
		// An undefined field is not equal to anything.
		return !found || !valuesEqual(value, arg)
	case opIn:
		members, ok := toSlice(arg)
		return ok && found && isMember(value, members)
	case opNin:
		members, ok := toSlice(arg)
		if !ok {
			return false
		}
		return !found || !isMember(value, members)
	case opRegex:
		pattern, ok := arg.(string)
		if !ok {
			return false
		}
		text, ok := value.(string)
		if !found || !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	case opExists:
		want, ok := arg.(bool)
		if !ok {
			return false
		}
		return found == want
	default:
		// Unknown operators never match rather than guessing.
		return false
	}
}

func isMember(value interface{}, members []interface{}) bool {
	for _, m := range members {
		if valuesEqual(value, m) {
			return true
		}
	}
	return false
}

// valuesEqual compares with numeric coercion so that documents decoded
// from JSON (float64 numbers) still match filters built with Go ints.
func valuesEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values when their types are compatible:
// numbers numerically, strings lexicographically. Anything else is
// incomparable and the comparison evaluates to false, never an error.
func compareValues(a, b interface{}) (int, bool) {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toSlice(v interface{}) ([]interface{}, bool) {
	cond := model.Classify(v)
	if cond.Kind != model.CondMembership {
		return nil, false
	}
	return cond.Members, true
}
