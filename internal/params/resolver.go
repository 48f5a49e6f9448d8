package params

import (
	"strconv"

	"doccalc/internal/logging"
)

// NoPosition marks a slot that is only reachable by name.
const NoPosition = -1

// Slot names a logical parameter and the positional index it may also be
// given at.
type Slot struct {
	Key      string
	Position int
}

// Named returns a slot with no positional index.
func Named(key string) Slot {
	return Slot{Key: key, Position: NoPosition}
}

// At returns a slot reachable by name or at the given positional index.
func At(key string, position int) Slot {
	return Slot{Key: key, Position: position}
}

// PositionKey returns the key the slot's positional value is stored under,
// or "" if the slot has no position.
func (s Slot) PositionKey() string {
	if s.Position == NoPosition {
		return ""
	}
	return strconv.Itoa(s.Position)
}

// Source tells which layer a resolved value came from.
type Source int

const (
	SourceAbsent Source = iota
	SourceNamed
	SourcePositional
	SourceDocument
)

func (s Source) String() string {
	switch s {
	case SourceNamed:
		return "named"
	case SourcePositional:
		return "positional"
	case SourceDocument:
		return "document"
	default:
		return "absent"
	}
}

// Resolve looks a slot up through local named, local positional and document
// values, in that order. An explicit null counts as present.
func Resolve(slot Slot, local, document Set) (Value, bool) {
	v, src := ResolveFrom(slot, local, document)
	return v, src != SourceAbsent
}

// ResolveFrom is Resolve but also reports the layer that answered.
func ResolveFrom(slot Slot, local, document Set) (Value, Source) {
	v, src := lookup(slot, local, document)
	logging.ParamsDebug("%s resolved to %q from %s layer", slot.Key, v, src)
	return v, src
}

func lookup(slot Slot, local, document Set) (Value, Source) {
	if v, ok := local.Get(slot.Key); ok {
		return v, SourceNamed
	}
	if pk := slot.PositionKey(); pk != "" {
		if v, ok := local.Get(pk); ok {
			return v, SourcePositional
		}
	}
	if v, ok := document.Get(slot.Key); ok {
		return v, SourceDocument
	}
	return Value{}, SourceAbsent
}

// ResolveLocal is Resolve without the document layer.
func ResolveLocal(slot Slot, local Set) (Value, bool) {
	return Resolve(slot, local, nil)
}

// IsLenient reports whether the invocation asked for invalid input to be
// replaced by fallbacks. Only the local layer is consulted. modeSlot may
// carry a positional index for directives that reserve one for the mode.
func IsLenient(local Set, modeSlot Slot) bool {
	v, ok := ResolveLocal(modeSlot, local)
	return ok && !v.Null && v.Text == IgnoreInvalid
}

// ModeSlot is the named-only mode slot.
var ModeSlot = Named(ModeKey)
