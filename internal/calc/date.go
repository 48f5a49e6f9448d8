package calc

import (
	"context"
	"time"

	"doccalc/internal/coerce"
	"doccalc/internal/logging"
	"doccalc/internal/params"
)

// calc_date slots.
var (
	slotDate     = params.At("date", 1)
	slotValue    = params.At("value", 2)
	slotFormat   = params.At("format", 3)
	slotFromZone = params.At("from_zone_id", 4)
	slotToZone   = params.At("to_zone_id", 5)
	slotDateMode = params.At(params.ModeKey, 6)
)

// Clock returns the current time.
type Clock func() time.Time

// DateShift implements the calc_date directive: it moves a calendar date by
// a signed number of days, months or years, optionally re-reads it in
// another timezone and formats it.
type DateShift struct {
	// Clock supplies "now" for lenient dates and zone conversion.
	// Defaults to time.Now.
	Clock Clock
	// Location is the zone used for today's date and for missing or
	// unrecognized zone ids. Defaults to time.Local.
	Location *time.Location
}

// Name implements Calculator.
func (DateShift) Name() string { return "calc_date" }

// Slots implements Calculator.
func (DateShift) Slots() []params.Slot {
	return []params.Slot{slotDate, slotValue, slotFormat, slotFromZone, slotToZone, slotDateMode}
}

func (c DateShift) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

func (c DateShift) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Calculate implements Calculator.
func (c DateShift) Calculate(_ context.Context, target string, local, document params.Set) string {
	lenient := params.IsLenient(local, slotDateMode)
	now := c.now()
	loc := c.location()

	dv, ok := params.Resolve(slotDate, local, document)
	var day time.Time
	if lenient {
		day = coerce.LenientDate(dv, ok, now.In(loc))
	} else {
		d, err := coerce.Date(dv, ok)
		if err != nil {
			logging.DateDebug("date: %v", err)
			return NotADate.String()
		}
		day = d
	}

	av, ok := params.Resolve(slotValue, local, document)
	var amount coerce.Amount
	if lenient {
		amount = coerce.LenientAmount(av, ok)
	} else {
		a, err := coerce.ParseAmount(av, ok)
		if err != nil {
			logging.DateDebug("value: %v", err)
			return NotANumber.String()
		}
		amount = a
	}

	pattern := coerce.ISODate
	if fv, ok := params.Resolve(slotFormat, local, document); ok && !fv.Null {
		if lenient {
			pattern = coerce.LenientFormat(fv, ok)
		} else {
			p, err := coerce.Format(fv, ok)
			if err != nil {
				logging.DateDebug("format: %v", err)
				return NotAFormat.String()
			}
			pattern = p
		}
	}

	var shifted time.Time
	var err error
	switch op := ParseOperator(target); op {
	case OpSum:
		shifted, err = amount.Shift(day, false)
	case OpSub:
		shifted, err = amount.Shift(day, true)
	case OpMultiply, OpDivide, OpUnknown:
		logging.DateDebug("operator %q does not apply to dates", target)
		return NotAnOperation.String()
	}
	if err != nil {
		logging.DateDebug("value: %v", err)
		if !lenient {
			return NotANumber.String()
		}
		shifted = day
	}

	fromV, fromOK := params.Resolve(slotFromZone, local, document)
	toV, toOK := params.Resolve(slotToZone, local, document)
	if fromOK || toOK {
		from := coerce.LenientZone(fromV, fromOK, loc)
		to := coerce.LenientZone(toV, toOK, loc)
		converted := convertZone(shifted, from, to, now)
		logging.DateDebug("%s read in %s is %s in %s", shifted.Format(coerce.ISODateLayout), from, converted.Format(coerce.ISODateLayout), to)
		shifted = converted
	}

	logging.DateDebug("%s %s on %s formatted with %s", target, amount, day.Format(coerce.ISODateLayout), pattern)
	return pattern.Format(shifted)
}

// convertZone places day at the current wall-clock time in from and returns
// the calendar date of that instant in to.
func convertZone(day time.Time, from, to *time.Location, now time.Time) time.Time {
	wall := now.In(from)
	instant := time.Date(day.Year(), day.Month(), day.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), from)
	return coerce.CivilDate(instant.In(to))
}
