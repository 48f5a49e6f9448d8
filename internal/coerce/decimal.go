package coerce

import (
	"github.com/cockroachdb/apd/v3"

	"doccalc/internal/params"
)

// Decimal parses v as an arbitrary-precision decimal. NaN and infinities
// are rejected.
func Decimal(v params.Value, ok bool) (*apd.Decimal, error) {
	raw, err := text(v, ok)
	if err != nil {
		return nil, err
	}
	d, _, err := apd.NewFromString(raw)
	if err != nil {
		return nil, invalid("decimal", raw, err)
	}
	if d.Form != apd.Finite {
		return nil, invalid("decimal", raw, nil)
	}
	return d, nil
}

// RoundCeiling2 rounds d to two fractional digits towards positive infinity
// and renders it in fixed-point notation, e.g. "0.34" or "-1.00".
func RoundCeiling2(d *apd.Decimal) (string, error) {
	// Enough precision to hold every integer digit plus two fractional ones.
	prec := d.NumDigits() + 3
	if d.Exponent > 0 {
		prec += int64(d.Exponent)
	}
	ctx := apd.BaseContext.WithPrecision(uint32(prec))
	ctx.Rounding = apd.RoundCeiling

	var out apd.Decimal
	if _, err := ctx.Quantize(&out, d, -2); err != nil {
		return "", err
	}
	if out.IsZero() {
		out.Negative = false
	}
	return out.Text('f'), nil
}
