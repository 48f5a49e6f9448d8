package coerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone ids must resolve on hosts without a zoneinfo database

	"doccalc/internal/logging"
	"doccalc/internal/params"
)

// Zone resolves a timezone identifier. IANA names ("Europe/Madrid"), "UTC",
// "Z" and fixed offsets ("+02:00", "-0530", "UTC+3", "GMT-02:30") are
// recognized. The empty string and "Local" are not zone identifiers here.
func Zone(v params.Value, ok bool) (*time.Location, error) {
	raw, err := text(v, ok)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(raw)
	if id == "" || strings.EqualFold(id, "local") {
		return nil, invalid("zone", raw, nil)
	}
	if id == "Z" {
		return time.UTC, nil
	}
	if loc, ok := fixedOffset(id); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, invalid("zone", raw, err)
	}
	return loc, nil
}

// LenientZone is Zone with fallback as the substitute.
func LenientZone(v params.Value, ok bool, fallback *time.Location) *time.Location {
	loc, err := Zone(v, ok)
	if err != nil {
		logging.CoerceDebug("%v, using %s", err, fallback)
		return fallback
	}
	return loc
}

func fixedOffset(id string) (*time.Location, bool) {
	rest := id
	for _, prefix := range []string{"UTC", "GMT", "UT"} {
		if strings.HasPrefix(id, prefix) && len(id) > len(prefix) {
			rest = id[len(prefix):]
			break
		}
	}
	if rest == "" || (rest[0] != '+' && rest[0] != '-') {
		return nil, false
	}
	sign := 1
	if rest[0] == '-' {
		sign = -1
	}
	body := strings.ReplaceAll(rest[1:], ":", "")

	var hh, mm int
	var err error
	switch len(body) {
	case 1, 2:
		hh, err = strconv.Atoi(body)
	case 4:
		hh, err = strconv.Atoi(body[:2])
		if err == nil {
			mm, err = strconv.Atoi(body[2:])
		}
	default:
		return nil, false
	}
	if err != nil || hh < 0 || hh > 18 || mm < 0 || mm > 59 {
		return nil, false
	}
	offset := sign * (hh*3600 + mm*60)
	return time.FixedZone(fmt.Sprintf("UTC%s", rest), offset), true
}
