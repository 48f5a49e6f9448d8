package expr

import (
	"fmt"
	"go/scanner"
	"go/token"
	"strings"
)

// function is a name accepted in expressions and its math package
// implementation.
type function struct {
	name  string
	arity int // -1 for one or more arguments
}

var functions = map[string]function{
	"sin":   {"math.Sin", 1},
	"cos":   {"math.Cos", 1},
	"tan":   {"math.Tan", 1},
	"asin":  {"math.Asin", 1},
	"acos":  {"math.Acos", 1},
	"atan":  {"math.Atan", 1},
	"atan2": {"math.Atan2", 2},
	"sinh":  {"math.Sinh", 1},
	"cosh":  {"math.Cosh", 1},
	"tanh":  {"math.Tanh", 1},
	"sqrt":  {"math.Sqrt", 1},
	"cbrt":  {"math.Cbrt", 1},
	"abs":   {"math.Abs", 1},
	"exp":   {"math.Exp", 1},
	"ln":    {"math.Log", 1},
	"log":   {"math.Log", 1},
	"log10": {"math.Log10", 1},
	"log2":  {"math.Log2", 1},
	"floor": {"math.Floor", 1},
	"ceil":  {"math.Ceil", 1},
	"round": {"math.Round", 1},
	"trunc": {"math.Trunc", 1},
	"pow":   {"math.Pow", 2},
	"hypot": {"math.Hypot", 2},
	"mod":   {"math.Mod", 2},
	"min":   {"math.Min", -1},
	"max":   {"math.Max", -1},
}

var constants = map[string]string{
	"pi": "math.Pi",
	"e":  "math.E",
}

// Rewrite turns an arithmetic expression into a Go float64 expression the
// interpreter can evaluate.
//
// The accepted grammar is
//
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ "^" unary ]
//	primary = number | constant | function "(" sum { "," sum } ")" | "(" sum ")"
//
// so "^" is right-associative and binds tighter than a leading minus
// (-2^2 is -4). Integer literals become float literals, which makes division
// real division, and leading zeros are decimal (08 is 8).
func Rewrite(src string) (string, error) {
	items, err := lex(src)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", ErrEmpty
	}

	p := &parser{items: items}
	x, err := p.sum()
	if err != nil {
		return "", err
	}
	if p.peek() != token.EOF {
		return "", p.unexpected()
	}
	return "float64(" + x + ")", nil
}

type item struct {
	tok token.Token
	lit string
	col int
}

// lex splits src into tokens using the Go scanner. "++" and "--" are split
// back into two signs, and integer literals are normalized to decimal floats.
func lex(src string) ([]item, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("expr", fset.Base(), len(src))

	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(file, []byte(src), func(pos token.Position, msg string) { errs.Add(pos, msg) }, 0)

	var items []item
	// Byte ranges of literals with a leading zero. The scanner reads them
	// as octal and complains about 8 and 9.
	var leadingZero [][2]int
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.SEMICOLON && lit == "\n" {
			// Automatic semicolon inserted by the scanner.
			continue
		}
		col := fset.Position(pos).Column

		switch tok {
		case token.INC:
			items = append(items, item{tok: token.ADD, col: col}, item{tok: token.ADD, col: col + 1})
		case token.DEC:
			items = append(items, item{tok: token.SUB, col: col}, item{tok: token.SUB, col: col + 1})
		case token.INT:
			if strings.ContainsAny(lit, "xXbBoO") {
				return nil, fmt.Errorf("%w: unsupported literal %q", ErrSyntax, lit)
			}
			if lit[0] == '0' {
				off := file.Offset(pos)
				leadingZero = append(leadingZero, [2]int{off, off + len(lit)})
			}
			digits := strings.TrimLeft(strings.ReplaceAll(lit, "_", ""), "0")
			if digits == "" {
				digits = "0"
			}
			items = append(items, item{tok: token.FLOAT, lit: digits + ".0", col: col})
		case token.FLOAT:
			if strings.ContainsAny(lit, "xXpP") {
				return nil, fmt.Errorf("%w: unsupported literal %q", ErrSyntax, lit)
			}
			items = append(items, item{tok: tok, lit: lit, col: col})
		default:
			items = append(items, item{tok: tok, lit: lit, col: col})
		}
	}

	for _, e := range errs {
		if !inRanges(e.Pos.Offset, leadingZero) {
			return nil, fmt.Errorf("%w: %s at column %d", ErrSyntax, e.Msg, e.Pos.Column)
		}
	}
	return items, nil
}

func inRanges(off int, ranges [][2]int) bool {
	for _, r := range ranges {
		if off >= r[0] && off < r[1] {
			return true
		}
	}
	return false
}

type parser struct {
	items []item
	pos   int
}

func (p *parser) peek() token.Token {
	if p.pos < len(p.items) {
		return p.items[p.pos].tok
	}
	return token.EOF
}

func (p *parser) next() item {
	it := p.items[p.pos]
	p.pos++
	return it
}

func (p *parser) expect(tok token.Token) error {
	if p.peek() != tok {
		return p.unexpected()
	}
	p.pos++
	return nil
}

func (p *parser) unexpected() error {
	if p.pos >= len(p.items) {
		return fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	}
	it := p.items[p.pos]
	return fmt.Errorf("%w: unexpected %q at column %d", ErrSyntax, tokenText(it.tok, it.lit), it.col)
}

func (p *parser) sum() (string, error) {
	left, err := p.product()
	if err != nil {
		return "", err
	}
	for p.peek() == token.ADD || p.peek() == token.SUB {
		op := p.next().tok
		right, err := p.product()
		if err != nil {
			return "", err
		}
		left = "(" + left + " " + op.String() + " " + right + ")"
	}
	return left, nil
}

func (p *parser) product() (string, error) {
	left, err := p.unary()
	if err != nil {
		return "", err
	}
	for p.peek() == token.MUL || p.peek() == token.QUO {
		op := p.next().tok
		right, err := p.unary()
		if err != nil {
			return "", err
		}
		left = "(" + left + " " + op.String() + " " + right + ")"
	}
	return left, nil
}

func (p *parser) unary() (string, error) {
	switch p.peek() {
	case token.ADD:
		p.pos++
		return p.unary()
	case token.SUB:
		p.pos++
		x, err := p.unary()
		if err != nil {
			return "", err
		}
		return "(-" + x + ")", nil
	}
	return p.power()
}

func (p *parser) power() (string, error) {
	base, err := p.primary()
	if err != nil {
		return "", err
	}
	if p.peek() != token.XOR {
		return base, nil
	}
	p.pos++
	exp, err := p.unary()
	if err != nil {
		return "", err
	}
	return "math.Pow(" + base + ", " + exp + ")", nil
}

func (p *parser) primary() (string, error) {
	switch p.peek() {
	case token.FLOAT:
		return p.next().lit, nil
	case token.LPAREN:
		p.pos++
		x, err := p.sum()
		if err != nil {
			return "", err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return "", err
		}
		return x, nil
	case token.IDENT:
		it := p.next()
		name := strings.ToLower(it.lit)
		if c, ok := constants[name]; ok {
			return c, nil
		}
		fn, ok := functions[name]
		if !ok {
			return "", fmt.Errorf("%w: unknown identifier %q", ErrSyntax, it.lit)
		}
		return p.call(it.lit, fn)
	}
	return "", p.unexpected()
}

func (p *parser) call(name string, fn function) (string, error) {
	if err := p.expect(token.LPAREN); err != nil {
		return "", err
	}
	var args []string
	for {
		arg, err := p.sum()
		if err != nil {
			return "", err
		}
		args = append(args, arg)
		if p.peek() != token.COMMA {
			break
		}
		p.pos++
	}
	if err := p.expect(token.RPAREN); err != nil {
		return "", err
	}

	if fn.arity < 0 {
		// Variadic min and max fold pairwise.
		out := args[0]
		for _, a := range args[1:] {
			out = fn.name + "(" + out + ", " + a + ")"
		}
		return out, nil
	}
	if len(args) != fn.arity {
		return "", fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrSyntax, name, fn.arity, len(args))
	}
	return fn.name + "(" + strings.Join(args, ", ") + ")", nil
}

func tokenText(tok token.Token, lit string) string {
	if lit != "" {
		return lit
	}
	return tok.String()
}
