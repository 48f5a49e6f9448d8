package expr

import (
	"fmt"
	"sync"

	"doccalc/internal/logging"
)

// LicenseType is the kind of use the attesting author declares.
type LicenseType string

const (
	Commercial    LicenseType = "commercial"
	NonCommercial LicenseType = "non_commercial"
)

// ParseLicenseType accepts exactly "commercial" or "non_commercial".
func ParseLicenseType(s string) (LicenseType, error) {
	switch LicenseType(s) {
	case Commercial, NonCommercial:
		return LicenseType(s), nil
	default:
		return "", fmt.Errorf("unknown license type %q", s)
	}
}

// Attestation is an author's declaration of how the engine is used.
type Attestation struct {
	Author string
	Type   LicenseType
}

// Attestor records an attestation before expressions are evaluated.
type Attestor interface {
	Confirm(a Attestation)
}

// License is a set-once attestation record. The first Confirm wins; later
// calls, with the same or different values, are no-ops. Safe for concurrent use.
type License struct {
	once     sync.Once
	mu       sync.RWMutex
	recorded *Attestation
}

// Confirm records a on the first call.
func (l *License) Confirm(a Attestation) {
	l.once.Do(func() {
		l.mu.Lock()
		l.recorded = &a
		l.mu.Unlock()
		switch a.Type {
		case Commercial:
			logging.Expression("commercial use confirmed by %s", a.Author)
		case NonCommercial:
			logging.Expression("non-commercial use confirmed by %s", a.Author)
		}
	})
}

// Attestation returns the recorded attestation, if any.
func (l *License) Attestation() (Attestation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.recorded == nil {
		return Attestation{}, false
	}
	return *l.recorded, true
}
