package coerce

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"doccalc/internal/logging"
	"doccalc/internal/params"
)

// ISODateLayout is the Go layout for a calendar date.
const ISODateLayout = "2006-01-02"

// Date parses an ISO calendar date (YYYY-MM-DD). The result is midnight UTC
// of that day; only its calendar fields are meaningful.
func Date(v params.Value, ok bool) (time.Time, error) {
	raw, err := text(v, ok)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(ISODateLayout, raw)
	if err != nil {
		return time.Time{}, invalid("date", raw, err)
	}
	return t, nil
}

// LenientDate is Date with today (as seen from now) as the fallback.
func LenientDate(v params.Value, ok bool, now time.Time) time.Time {
	d, err := Date(v, ok)
	if err != nil {
		logging.CoerceDebug("%v, using today", err)
		return CivilDate(now)
	}
	return d
}

// CivilDate drops the time of day and zone of t, keeping its calendar date.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Unit is the calendar unit of a date shift.
type Unit int

const (
	Days Unit = iota
	Months
	Years
)

func (u Unit) String() string {
	switch u {
	case Months:
		return "months"
	case Years:
		return "years"
	default:
		return "days"
	}
}

// Suffix returns the single-letter suffix used in amounts.
func (u Unit) Suffix() string {
	switch u {
	case Months:
		return "m"
	case Years:
		return "y"
	default:
		return "d"
	}
}

// Amount is a signed count of calendar units.
type Amount struct {
	Value int64
	Unit  Unit
}

func (a Amount) String() string {
	return strconv.FormatInt(a.Value, 10) + a.Unit.Suffix()
}

// MaxYear bounds the years a shifted date may land in, in both directions.
const MaxYear = 999_999_999

// ErrOutOfRange means a shift would move a date past MaxYear.
var ErrOutOfRange = errors.New("date out of range")

// Shift moves t by the amount, backwards when back is set.
func (a Amount) Shift(t time.Time, back bool) (time.Time, error) {
	n := a.Value
	if back {
		if n == math.MinInt64 {
			return time.Time{}, fmt.Errorf("%w: -(%s)", ErrOutOfRange, a)
		}
		n = -n
	}
	return a.Unit.Shift(t, n)
}

// Shift adds n units to a civil date. Month and year shifts that land past
// the end of a month clamp to its last day, so 2024-01-31 + 1m = 2024-02-29.
func (u Unit) Shift(t time.Time, n int64) (time.Time, error) {
	// Reject counts that cannot stay in range before multiplying them.
	var limit int64
	switch u {
	case Months:
		limit = 2 * MaxYear * 12
	case Years:
		limit = 2 * MaxYear
	default:
		limit = 2 * MaxYear * 366
	}
	if n > limit || n < -limit {
		return time.Time{}, fmt.Errorf("%w: %d %s", ErrOutOfRange, n, u)
	}

	var out time.Time
	switch u {
	case Months:
		out = addMonths(t, n)
	case Years:
		out = addMonths(t, n*12)
	default:
		out = time.Unix(t.Unix()+n*secondsPerDay, 0).UTC()
	}
	if y := int64(out.Year()); y > MaxYear || y < -MaxYear {
		return time.Time{}, fmt.Errorf("%w: %d %s from %s", ErrOutOfRange, n, u, t.Format(ISODateLayout))
	}
	return out, nil
}

const secondsPerDay = 24 * 60 * 60

func addMonths(t time.Time, n int64) time.Time {
	total := int64(t.Year())*12 + int64(t.Month()-1) + n
	year := floorDiv(total, 12)
	month := time.Month(total-year*12) + 1
	day := t.Day()
	if last := daysIn(int(year), month); day > last {
		day = last
	}
	return time.Date(int(year), month, day, 0, 0, 0, 0, time.UTC)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseAmount parses a signed integer with an optional d/m/y suffix. A
// missing suffix means days. The detected unit is returned even when the
// numeric part fails to parse, so lenient callers can keep it.
func ParseAmount(v params.Value, ok bool) (Amount, error) {
	raw, err := text(v, ok)
	if err != nil {
		return Amount{Unit: Days}, err
	}

	unit := Days
	digits := raw
	if n := len(raw); n > 0 {
		switch raw[n-1] {
		case 'd':
			unit, digits = Days, raw[:n-1]
		case 'm':
			unit, digits = Months, raw[:n-1]
		case 'y':
			unit, digits = Years, raw[:n-1]
		}
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Amount{Unit: unit}, invalid("amount", raw, err)
	}
	return Amount{Value: n, Unit: unit}, nil
}

// LenientAmount is ParseAmount with a zero count as the fallback. The unit
// keeps whatever suffix was detected.
func LenientAmount(v params.Value, ok bool) Amount {
	a, err := ParseAmount(v, ok)
	if err != nil {
		logging.CoerceDebug("%v, using 0%s", err, a.Unit.Suffix())
		return Amount{Unit: a.Unit}
	}
	return a
}
