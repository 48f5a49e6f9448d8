// Package params models the raw parameters handed to a directive and the
// layered lookup used to resolve each logical parameter.
//
// A directive invocation carries two layers: the local parameters written at
// the directive site, and the document parameters declared once for the whole
// document. Local values always win.
package params

import (
	"fmt"
	"sort"
	"strconv"
)

// Reserved parameter names and values.
const (
	ModeKey       = "mode"
	IgnoreInvalid = "ignore_invalid"
)

// Value is a raw parameter value. A Null value is present but carries no
// text, which coercers reject like any other invalid input.
type Value struct {
	Text string
	Null bool
}

// Text returns a non-null Value.
func Text(s string) Value {
	return Value{Text: s}
}

// Null returns the explicit null Value.
func Null() Value {
	return Value{Null: true}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.Null {
		return "<null>"
	}
	return v.Text
}

// Set maps parameter keys to raw values. Keys are either names or
// integer-string positional indices.
type Set map[string]Value

// FromMap converts a loosely typed attribute bag into a Set. Scalars are
// stringified and nil becomes an explicit null.
func FromMap(m map[string]any) Set {
	s := make(Set, len(m))
	for k, v := range m {
		s[k] = valueOf(v)
	}
	return s
}

// valueOf converts a scalar into a Value.
func valueOf(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return Text(t)
	case *string:
		if t == nil {
			return Null()
		}
		return Text(*t)
	case int:
		return Text(strconv.Itoa(t))
	case int64:
		return Text(strconv.FormatInt(t, 10))
	case float64:
		return Text(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		return Text(strconv.FormatBool(t))
	default:
		return Text(fmt.Sprint(t))
	}
}

// Get returns the value stored under key. A nil Set is empty.
func (s Set) Get(key string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s[key]
	return v, ok
}

// Has reports whether key is present, including explicit nulls.
func (s Set) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Clone returns a shallow copy. Cloning nil yields an empty Set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Positional is a local entry whose key is an integer index.
type Positional struct {
	Index int
	Value Value
}

// Operands splits a Set into its positional entries, ordered by index, and
// reports how many non-mode entries it holds in total. Non-mode entries whose
// key is not a canonical integer ("1", not "01" or "+1") are counted but not
// returned, so no two operands share an index.
func (s Set) Operands() (positional []Positional, total int) {
	for k, v := range s {
		if k == ModeKey {
			continue
		}
		total++
		idx, err := strconv.Atoi(k)
		if err != nil || strconv.Itoa(idx) != k {
			continue
		}
		positional = append(positional, Positional{Index: idx, Value: v})
	}
	sort.Slice(positional, func(i, j int) bool {
		return positional[i].Index < positional[j].Index
	})
	return positional, total
}
