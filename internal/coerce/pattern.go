package coerce

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"doccalc/internal/logging"
	"doccalc/internal/params"
)

// Pattern is a compiled date output pattern.
//
// Two syntaxes are accepted. Patterns containing '%' are strftime patterns
// ("%d %b %Y"). Everything else uses the CLDR pattern letters ("d MMM yy",
// "MMM d, yyyy", "EEEE 'the' d"). Patterns only describe calendar dates, so
// time-of-day letters are rejected.
type Pattern struct {
	source   string
	strftime bool
	elems    []patternElem
}

// ISODate is the fallback pattern, rendering YYYY-MM-DD.
var ISODate = mustCompile("yyyy-MM-dd")

// Source returns the pattern text.
func (p *Pattern) Source() string {
	return p.source
}

// String implements fmt.Stringer.
func (p *Pattern) String() string {
	if p.strftime {
		return "strftime(" + p.source + ")"
	}
	return "pattern(" + p.source + ")"
}

// Format renders the calendar date of t.
func (p *Pattern) Format(t time.Time) string {
	if p.strftime {
		return strftime.Format(p.source, t)
	}
	var b strings.Builder
	for _, e := range p.elems {
		e.append(&b, t)
	}
	return b.String()
}

// Format coerces v into a Pattern.
func Format(v params.Value, ok bool) (*Pattern, error) {
	raw, err := text(v, ok)
	if err != nil {
		return nil, err
	}
	p, err := CompilePattern(raw)
	if err != nil {
		return nil, invalid("format", raw, err)
	}
	return p, nil
}

// LenientFormat is Format with ISODate as the fallback.
func LenientFormat(v params.Value, ok bool) *Pattern {
	p, err := Format(v, ok)
	if err != nil {
		logging.CoerceDebug("%v, using %s", err, ISODate)
		return ISODate
	}
	return p
}

var errEmptyPattern = errors.New("empty pattern")

// CompilePattern compiles a date pattern.
func CompilePattern(src string) (*Pattern, error) {
	if src == "" {
		return nil, errEmptyPattern
	}
	if strings.ContainsRune(src, '%') {
		if _, err := strftime.Layout(src); err != nil {
			return nil, err
		}
		return &Pattern{source: src, strftime: true}, nil
	}
	elems, err := parseLetters(src)
	if err != nil {
		return nil, err
	}
	return &Pattern{source: src, elems: elems}, nil
}

func mustCompile(src string) *Pattern {
	p, err := CompilePattern(src)
	if err != nil {
		panic(err)
	}
	return p
}

// patternElem is either a literal or a letter field repeated count times.
type patternElem struct {
	literal string
	letter  rune
	count   int
}

// maxCount bounds the repetition of each supported letter.
var maxCount = map[rune]int{
	'G': 5,
	'y': 19, 'u': 19, 'Y': 19,
	'Q': 5, 'q': 5,
	'M': 5, 'L': 5,
	'w': 2, 'W': 1, 'F': 1,
	'd': 2,
	'D': 3,
	'g': 19,
	'E': 5,
	'e': 2, 'c': 2,
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func parseLetters(src string) ([]patternElem, error) {
	rs := []rune(src)
	var elems []patternElem
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			elems = append(elems, patternElem{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == '\'':
			if i+1 < len(rs) && rs[i+1] == '\'' {
				lit.WriteRune('\'')
				i += 2
				continue
			}
			end := -1
			for j := i + 1; j < len(rs); j++ {
				if rs[j] != '\'' {
					continue
				}
				if j+1 < len(rs) && rs[j+1] == '\'' {
					j++
					continue
				}
				end = j
				break
			}
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote at offset %d", i)
			}
			lit.WriteString(strings.ReplaceAll(string(rs[i+1:end]), "''", "'"))
			i = end + 1

		case isLetter(r):
			n := 1
			for i+n < len(rs) && rs[i+n] == r {
				n++
			}
			limit, known := maxCount[r]
			if !known {
				return nil, fmt.Errorf("unsupported pattern letter %q", r)
			}
			if n > limit {
				return nil, fmt.Errorf("too many pattern letters %q (%d)", r, n)
			}
			flush()
			elems = append(elems, patternElem{letter: r, count: n})
			i += n

		case r == '#' || r == '{' || r == '}':
			return nil, fmt.Errorf("reserved pattern character %q", r)

		case r == '[' || r == ']':
			// Optional section markers; every date field is always available.
			i++

		default:
			lit.WriteRune(r)
			i++
		}
	}
	flush()
	return elems, nil
}

func (e patternElem) append(b *strings.Builder, t time.Time) {
	if e.letter == 0 {
		b.WriteString(e.literal)
		return
	}
	switch e.letter {
	case 'G':
		era := "AD"
		long := "Anno Domini"
		if t.Year() <= 0 {
			era, long = "BC", "Before Christ"
		}
		switch {
		case e.count == 4:
			b.WriteString(long)
		case e.count == 5:
			b.WriteString(era[:1])
		default:
			b.WriteString(era)
		}
	case 'y', 'u', 'Y':
		year := t.Year()
		if e.letter == 'Y' {
			year, _ = weekOfYear(t)
		}
		if e.count == 2 {
			b.WriteString(pad(((year%100)+100)%100, 2))
			return
		}
		b.WriteString(pad(year, e.count))
	case 'w':
		_, week := weekOfYear(t)
		b.WriteString(pad(week, e.count))
	case 'W':
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		b.WriteString(pad((t.Day()-1+int(first.Weekday()))/7+1, e.count))
	case 'F':
		b.WriteString(pad((t.Day()-1)/7+1, e.count))
	case 'g':
		b.WriteString(pad(int(floorDiv(t.Unix(), secondsPerDay)+mjdUnixEpoch), e.count))
	case 'Q', 'q':
		q := (int(t.Month())-1)/3 + 1
		switch e.count {
		case 1, 5:
			b.WriteString(strconv.Itoa(q))
		case 2:
			b.WriteString(pad(q, 2))
		case 3:
			b.WriteString("Q" + strconv.Itoa(q))
		case 4:
			b.WriteString(ordinals[q-1] + " quarter")
		}
	case 'M', 'L':
		m := t.Month()
		switch e.count {
		case 1:
			b.WriteString(strconv.Itoa(int(m)))
		case 2:
			b.WriteString(pad(int(m), 2))
		case 3:
			b.WriteString(m.String()[:3])
		case 4:
			b.WriteString(m.String())
		case 5:
			b.WriteString(m.String()[:1])
		}
	case 'd':
		b.WriteString(pad(t.Day(), e.count))
	case 'D':
		b.WriteString(pad(t.YearDay(), e.count))
	case 'E':
		wd := t.Weekday().String()
		switch e.count {
		case 4:
			b.WriteString(wd)
		case 5:
			b.WriteString(wd[:1])
		default:
			b.WriteString(wd[:3])
		}
	case 'e', 'c':
		// Localized day of week, English week starts on Sunday.
		b.WriteString(pad(int(t.Weekday())+1, e.count))
	}
}

var ordinals = [4]string{"1st", "2nd", "3rd", "4th"}

// mjdUnixEpoch is the modified Julian day of 1970-01-01.
const mjdUnixEpoch = 40587

// weekOfYear returns the week-based year and week of t. Weeks start on
// Sunday and week 1 is the one holding 1 January, matching 'e'.
func weekOfYear(t time.Time) (year, week int) {
	end := t.AddDate(0, 0, 6-int(t.Weekday()))
	if end.Year() > t.Year() {
		return end.Year(), 1
	}
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	return t.Year(), (t.YearDay()-1+int(jan1.Weekday()))/7 + 1
}

func pad(n, width int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.Itoa(n)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	if neg {
		s = "-" + s
	}
	return s
}
