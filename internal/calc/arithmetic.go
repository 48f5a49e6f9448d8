package calc

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"doccalc/internal/coerce"
	"doccalc/internal/logging"
	"doccalc/internal/params"
)

// arithmeticPrecision is the number of significant digits kept by every
// intermediate result, enough for decimal128 and for 1/3 to round up to 0.34.
const arithmeticPrecision = 34

// arithmeticContext traps division by zero, 0/0 and exponent overflow.
var arithmeticContext = apd.BaseContext.WithPrecision(arithmeticPrecision)

// Arithmetic implements the calc directive. Operands are the local
// parameters with integer keys, folded left to right in key order.
type Arithmetic struct{}

// Name implements Calculator.
func (Arithmetic) Name() string { return "calc" }

// Slots implements Calculator. Operands are positional from 0 and have no
// named slot.
func (Arithmetic) Slots() []params.Slot {
	return []params.Slot{params.ModeSlot}
}

// Calculate implements Calculator. The document layer is not consulted.
func (Arithmetic) Calculate(_ context.Context, target string, local, _ params.Set) string {
	lenient := params.IsLenient(local, params.ModeSlot)
	positional, expected := local.Operands()

	operands := make([]*apd.Decimal, 0, len(positional))
	for _, p := range positional {
		d, err := coerce.Decimal(p.Value, true)
		if err != nil {
			logging.CalcDebug("dropping operand %d: %v", p.Index, err)
			continue
		}
		operands = append(operands, d)
	}

	if !lenient && len(operands) != expected {
		logging.CalcDebug("%d of %d operands are numbers", len(operands), expected)
		return NotANumber.String()
	}

	op := ParseOperator(target)
	if op == OpUnknown {
		logging.CalcDebug("unknown operator %q", target)
		return NotAnOperation.String()
	}

	result, err := fold(op, operands)
	if err != nil {
		logging.CalcDebug("%s failed: %v", op, err)
		return NotAValidMathResult.String()
	}
	out, err := coerce.RoundCeiling2(result)
	if err != nil {
		logging.CalcDebug("rounding %s failed: %v", result, err)
		return NotAValidMathResult.String()
	}
	return out
}

var errNoOperands = errors.New("no operands")

func fold(op Operator, operands []*apd.Decimal) (*apd.Decimal, error) {
	if len(operands) == 0 {
		return nil, errNoOperands
	}
	acc := new(apd.Decimal).Set(operands[0])
	for _, x := range operands[1:] {
		next := new(apd.Decimal)
		var err error
		switch op {
		case OpSum:
			_, err = arithmeticContext.Add(next, acc, x)
		case OpSub:
			_, err = arithmeticContext.Sub(next, acc, x)
		case OpMultiply:
			_, err = arithmeticContext.Mul(next, acc, x)
		case OpDivide:
			_, err = arithmeticContext.Quo(next, acc, x)
		default:
			return nil, fmt.Errorf("unsupported operator %s", op)
		}
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}
