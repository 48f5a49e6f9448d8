// Package calc implements the calculation directives: calc (arithmetic),
// calc_date (calendar arithmetic) and calc_exp (free-form expressions).
//
// A directive invocation is a pure function of its target and its two
// parameter layers. Every outcome is a string: either the rendered value or
// one of the short error codes below, which the host embeds verbatim.
package calc

// Code is a sentinel result returned in place of a value.
type Code string

const (
	NotANumber          Code = "NaN"
	NotAnOperation      Code = "NaO"
	NotAValidMathResult Code = "NaVM"
	NotADate            Code = "NaD"
	NotAFormat          Code = "NaF"
	NotAnExpression     Code = "NaE"
	NotAnAuthor         Code = "NaA"
	NotAValidAuthor     Code = "NaVA"
	NotALicense         Code = "NaL"
)

var codes = map[string]Code{
	string(NotANumber):          NotANumber,
	string(NotAnOperation):      NotAnOperation,
	string(NotAValidMathResult): NotAValidMathResult,
	string(NotADate):            NotADate,
	string(NotAFormat):          NotAFormat,
	string(NotAnExpression):     NotAnExpression,
	string(NotAnAuthor):         NotAnAuthor,
	string(NotAValidAuthor):     NotAValidAuthor,
	string(NotALicense):         NotALicense,
}

// String returns the code as embedded in the document.
func (c Code) String() string { return string(c) }

// AsCode reports whether a directive result is an error code.
func AsCode(result string) (Code, bool) {
	c, ok := codes[result]
	return c, ok
}

// Operator is the operation named by a directive target.
type Operator int

const (
	OpUnknown Operator = iota
	OpSum
	OpSub
	OpMultiply
	OpDivide
)

// ParseOperator maps a directive target to an Operator. Unrecognized targets
// yield OpUnknown.
func ParseOperator(target string) Operator {
	switch target {
	case "sum":
		return OpSum
	case "sub":
		return OpSub
	case "multiply":
		return OpMultiply
	case "divide":
		return OpDivide
	default:
		return OpUnknown
	}
}

func (o Operator) String() string {
	switch o {
	case OpSum:
		return "sum"
	case OpSub:
		return "sub"
	case OpMultiply:
		return "multiply"
	case OpDivide:
		return "divide"
	default:
		return "unknown"
	}
}
