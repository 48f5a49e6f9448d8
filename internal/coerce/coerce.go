// Package coerce turns raw directive parameter values into typed values.
//
// Every coercer is strict: it returns a typed value or an error wrapping
// ErrAbsent or ErrInvalid. The Lenient helpers substitute the documented
// fallback instead of failing; callers pick one based on the invocation mode.
package coerce

import (
	"errors"
	"fmt"

	"doccalc/internal/params"
)

var (
	// ErrAbsent means the parameter was not supplied, or was an explicit null.
	ErrAbsent = errors.New("value absent")
	// ErrInvalid means the parameter was supplied but could not be parsed.
	ErrInvalid = errors.New("value invalid")
)

// text extracts the raw text of a resolved value, failing on absent or null.
func text(v params.Value, ok bool) (string, error) {
	if !ok || v.Null {
		return "", ErrAbsent
	}
	return v.Text, nil
}

func invalid(kind, raw string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalid, kind, raw, cause)
	}
	return fmt.Errorf("%w: %s %q", ErrInvalid, kind, raw)
}
