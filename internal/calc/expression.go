package calc

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"

	"doccalc/internal/coerce"
	"doccalc/internal/expr"
	"doccalc/internal/logging"
	"doccalc/internal/params"
)

// calc_exp slots.
var (
	slotExp         = params.At("exp", 1)
	slotAuthor      = params.At("author", 2)
	slotLicenseType = params.At("calc_exp_license_type", 3)
)

// minAuthorLength is the shortest accepted author name, in characters.
const minAuthorLength = 5

// Evaluator computes the value of an arithmetic expression.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string) (float64, error)
}

// Expression implements the calc_exp directive. Each evaluation requires an
// author and a license type, taken from the directive or from the document,
// which are confirmed to Attestor before the expression runs.
type Expression struct {
	Engine   Evaluator
	Attestor expr.Attestor
}

// Name implements Calculator.
func (Expression) Name() string { return "calc_exp" }

// Slots implements Calculator.
func (Expression) Slots() []params.Slot {
	return []params.Slot{slotExp, slotAuthor, slotLicenseType}
}

// Calculate implements Calculator. The target is ignored.
func (c Expression) Calculate(ctx context.Context, _ string, local, document params.Set) string {
	// The expression itself never comes from the document.
	ev, ok := params.ResolveLocal(slotExp, local)
	if !ok || ev.Null || strings.TrimSpace(ev.Text) == "" {
		return NotAnExpression.String()
	}

	av, ok := params.Resolve(slotAuthor, local, document)
	if !ok || av.Null || strings.TrimSpace(av.Text) == "" {
		return NotAnAuthor.String()
	}
	if utf8.RuneCountInString(av.Text) < minAuthorLength {
		logging.ExpressionDebug("author %q is too short", av.Text)
		return NotAValidAuthor.String()
	}

	lv, ok := params.Resolve(slotLicenseType, local, document)
	if !ok || lv.Null {
		return NotALicense.String()
	}
	license, err := expr.ParseLicenseType(lv.Text)
	if err != nil {
		logging.ExpressionDebug("license: %v", err)
		return NotALicense.String()
	}

	if c.Attestor != nil {
		c.Attestor.Confirm(expr.Attestation{Author: av.Text, Type: license})
	}

	v, err := c.Engine.Evaluate(ctx, ev.Text)
	if err != nil {
		logging.ExpressionDebug("evaluating %q: %v", ev.Text, err)
		return NotAnExpression.String()
	}

	d, _, err := apd.NewFromString(strconv.FormatFloat(v, 'g', -1, 64))
	if err != nil {
		logging.ExpressionDebug("converting %v: %v", v, err)
		return NotAnExpression.String()
	}
	out, err := coerce.RoundCeiling2(d)
	if err != nil {
		logging.ExpressionDebug("rounding %v: %v", v, err)
		return NotAnExpression.String()
	}
	return out
}
