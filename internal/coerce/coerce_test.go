package coerce

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doccalc/internal/params"
)

func val(s string) (params.Value, bool) { return params.Text(s), true }

func absent() (params.Value, bool) { return params.Value{}, false }

func TestDecimal(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "2", want: "2"},
		{raw: "-4.25", want: "-4.25"},
		{raw: "1e3", want: "1E+3"},
		{raw: "+0.5", want: "0.5"},
		{raw: "not a number", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "Infinity", wantErr: true},
		{raw: " 1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, err := Decimal(val(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDecimal_AbsentAndNull(t *testing.T) {
	_, err := Decimal(absent())
	assert.True(t, errors.Is(err, ErrAbsent))

	_, err = Decimal(params.Null(), true)
	assert.True(t, errors.Is(err, ErrAbsent))
}

func TestRoundCeiling2(t *testing.T) {
	tests := map[string]string{
		"0.333":  "0.34",
		"0.330":  "0.33",
		"-0.339": "-0.33",
		"-0.001": "0.00",
		"4":      "4.00",
		"1E+3":   "1000.00",
		"28.5":   "28.50",

		"12345678901234567890.001": "12345678901234567890.01",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			d, err := Decimal(val(in))
			require.NoError(t, err)
			got, err := RoundCeiling2(d)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDate(t *testing.T) {
	d, err := Date(val("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"not a date", "1st of Jan 2024", "2024/01/01", "2024-1-1", "2024-02-30"} {
		_, err := Date(val(bad))
		assert.True(t, errors.Is(err, ErrInvalid), bad)
	}

	now := time.Date(2026, 10, 18, 23, 30, 0, 0, time.FixedZone("X", 3600))
	today := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, today, LenientDate(params.Text("bogus"), true, now))
	assert.Equal(t, today, LenientDate(params.Value{}, false, now))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw      string
		want     Amount
		wantErr  bool
		wantUnit Unit
	}{
		{raw: "2d", want: Amount{Value: 2, Unit: Days}},
		{raw: "5", want: Amount{Value: 5, Unit: Days}},
		{raw: "1m", want: Amount{Value: 1, Unit: Months}},
		{raw: "1y", want: Amount{Value: 1, Unit: Years}},
		{raw: "-3y", want: Amount{Value: -3, Unit: Years}},
		{raw: "0d", want: Amount{Value: 0, Unit: Days}},
		{raw: "1w", wantErr: true, wantUnit: Days},
		{raw: "oney", wantErr: true, wantUnit: Years},
		{raw: "m", wantErr: true, wantUnit: Months},
		{raw: "", wantErr: true, wantUnit: Days},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(val(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, Amount{Unit: tt.wantUnit}, LenientAmount(val(tt.raw)))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnitShift(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		unit Unit
		from time.Time
		n    int64
		want time.Time
	}{
		{Days, d(2024, 1, 1), 2, d(2024, 1, 3)},
		{Days, d(2024, 1, 1), -2, d(2023, 12, 30)},
		{Days, d(2024, 2, 28), 366, d(2025, 2, 28)},
		{Months, d(2024, 1, 1), 1, d(2024, 2, 1)},
		{Months, d(2024, 1, 1), -1, d(2023, 12, 1)},
		{Months, d(2024, 1, 31), 1, d(2024, 2, 29)},
		{Months, d(2024, 1, 31), -2, d(2023, 11, 30)},
		{Years, d(2024, 1, 1), 1, d(2025, 1, 1)},
		{Years, d(2024, 2, 29), 1, d(2025, 2, 28)},
		{Years, d(2024, 2, 29), -4, d(2020, 2, 29)},
		{Years, d(2024, 1, 1), MaxYear - 2024, d(MaxYear, 1, 1)},
	}
	for _, tt := range tests {
		got, err := tt.unit.Shift(tt.from, tt.n)
		require.NoError(t, err, "%d %s", tt.n, tt.unit)
		assert.Equal(t, tt.want, got, "%d %s", tt.n, tt.unit)
	}
}

func TestUnitShift_OutOfRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		unit Unit
		n    int64
	}{
		{Days, math.MaxInt64},
		{Days, math.MinInt64},
		{Days, 2 * MaxYear * 366},
		{Months, math.MaxInt64},
		{Months, -MaxYear * 12 * 2},
		{Years, math.MaxInt64},
		{Years, math.MinInt64},
		{Years, MaxYear},
		{Years, -MaxYear - 2025},
	}
	for _, tt := range tests {
		_, err := tt.unit.Shift(from, tt.n)
		assert.ErrorIs(t, err, ErrOutOfRange, "%d %s", tt.n, tt.unit)
	}
}

func TestAmountShift(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := Amount{Value: 2, Unit: Days}.Shift(from, true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC), got)

	_, err = Amount{Value: math.MinInt64, Unit: Days}.Shift(from, true)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestCompilePattern(t *testing.T) {
	day := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		pattern string
		want    string
	}{
		{"yyyy-MM-dd", "2024-01-03"},
		{"d MMM yy", "3 Jan 24"},
		{"MMM d, yyyy", "Jan 3, 2024"},
		{"EEEE, MMMM dd", "Wednesday, January 03"},
		{"EEE", "Wed"},
		{"EEEEE MMMMM", "W J"},
		{"'Day' D 'of' y", "Day 3 of 2024"},
		{"DDD", "003"},
		{"QQQ qqqq", "Q1 1st quarter"},
		{"G yyyy", "AD 2024"},
		{"dd/MM/uuuu", "03/01/2024"},
		{"e", "4"},
		{"YYYY-MM-dd", "2024-01-03"},
		{"YY", "24"},
		{"w ww", "1 01"},
		{"W F", "1 1"},
		{"g", "60312"},
		{"h 'o''clock'", ""},
		{"'it''s' d", "it's 3"},
		{"%d %b %Y", "03 Jan 2024"},
		{"%F", "2024-01-03"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := CompilePattern(tt.pattern)
			if tt.want == "" {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Format(day))
		})
	}
}

func TestCompilePattern_WeekFields(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2024, m, day, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		pattern string
		day     time.Time
		want    string
	}{
		// 2024-12-29 is a Sunday; its week holds 1 January 2025.
		{"YYYY 'w'w", d(time.December, 29), "2025 w1"},
		{"YYYY 'w'w", d(time.December, 28), "2024 w52"},
		{"YYYY 'w'w", d(time.January, 1), "2024 w1"},
		{"w W F", d(time.January, 15), "3 3 3"},
		// February 2024 starts on a Thursday.
		{"W F", d(time.February, 29), "5 5"},
		{"W F", d(time.February, 4), "2 1"},
		{"g", d(time.January, 1), "60310"},
		{"ggggggg", d(time.January, 1), "0060310"},
	}
	for _, tt := range tests {
		p, err := CompilePattern(tt.pattern)
		require.NoError(t, err, tt.pattern)
		assert.Equal(t, tt.want, p.Format(tt.day), "%s on %s", tt.pattern, tt.day.Format(ISODateLayout))
	}
}

func TestCompilePattern_Invalid(t *testing.T) {
	for _, bad := range []string{
		"",
		"not a valid output date format",
		"not a valid format",
		"HH:mm",
		"ddd",
		"MMMMMM",
		"www",
		"WW",
		"'unterminated",
		"yyyy#",
	} {
		_, err := CompilePattern(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatCoercer(t *testing.T) {
	_, err := Format(absent())
	assert.True(t, errors.Is(err, ErrAbsent))

	_, err = Format(val("not a valid format"))
	assert.True(t, errors.Is(err, ErrInvalid))

	assert.Same(t, ISODate, LenientFormat(val("not a valid format")))
	assert.Equal(t, "2024-01-02", LenientFormat(val("nope")).Format(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
}

func TestZone(t *testing.T) {
	for _, id := range []string{"UTC", "Europe/Madrid", "America/Adak", "Asia/Yangon", "Pacific/Tarawa"} {
		loc, err := Zone(val(id))
		require.NoError(t, err, id)
		assert.Equal(t, id, loc.String())
	}

	loc, err := Zone(val("Z"))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for id, offset := range map[string]int{
		"+02:00":    2 * 3600,
		"-0530":     -(5*3600 + 30*60),
		"UTC+3":     3 * 3600,
		"GMT-02:30": -(2*3600 + 30*60),
	} {
		loc, err := Zone(val(id))
		require.NoError(t, err, id)
		_, got := ref.In(loc).Zone()
		assert.Equal(t, offset, got, id)
	}

	for _, bad := range []string{"invalid zone id", "", "Local", "+25:00", "Mars/Olympus"} {
		_, err := Zone(val(bad))
		assert.True(t, errors.Is(err, ErrInvalid), bad)
	}

	fallback := time.FixedZone("fallback", 0)
	assert.Same(t, fallback, LenientZone(params.Text("nope"), true, fallback))
	assert.Same(t, fallback, LenientZone(params.Null(), true, fallback))
}
