// Package expr evaluates free-form arithmetic expressions for the calc_exp
// directive.
//
// Expressions are rewritten into Go float64 expressions (see Rewrite) and run
// by a yaegi interpreter that only has the math package available. The engine
// keeps a small pool of warmed-up interpreters; each evaluation borrows one
// exclusively, so an Engine is safe for concurrent use.
package expr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"doccalc/internal/logging"
)

var (
	// ErrEmpty is returned for a blank expression.
	ErrEmpty = errors.New("empty expression")
	// ErrSyntax is returned when the expression uses unsupported tokens.
	ErrSyntax = errors.New("invalid expression")
	// ErrUndefined is returned when the expression has no finite value,
	// e.g. division by zero or sqrt(-1).
	ErrUndefined = errors.New("undefined result")
)

// Options configures an Engine.
type Options struct {
	// Timeout bounds a single evaluation. Zero means no timeout.
	Timeout time.Duration
	// PoolSize is the number of idle interpreters kept around.
	PoolSize int
}

// DefaultOptions returns the default engine configuration.
func DefaultOptions() Options {
	return Options{Timeout: 2 * time.Second, PoolSize: 4}
}

// Engine evaluates arithmetic expressions.
type Engine struct {
	opts    Options
	idle    chan *interp.Interpreter
	license *License
}

// NewEngine creates an Engine. The returned engine owns a fresh License.
func NewEngine(opts Options) *Engine {
	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultOptions().PoolSize
	}
	return &Engine{
		opts:    opts,
		idle:    make(chan *interp.Interpreter, opts.PoolSize),
		license: &License{},
	}
}

// License returns the engine's attestation record.
func (e *Engine) License() *License {
	return e.license
}

// Evaluate computes the value of an arithmetic expression.
func (e *Engine) Evaluate(ctx context.Context, expression string) (float64, error) {
	src, err := Rewrite(expression)
	if err != nil {
		return 0, err
	}
	logging.ExpressionDebug("rewritten %q as %q", expression, src)

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	i, err := e.acquire()
	if err != nil {
		return 0, err
	}

	timer := logging.StartTimer(logging.CategoryExpression, "evaluation of "+strconv.Quote(expression))
	v, err := eval(ctx, i, src)
	if e.opts.Timeout > 0 {
		timer.StopWithThreshold(e.opts.Timeout / 2)
	} else {
		timer.Stop()
	}
	if err != nil {
		// A failed evaluation may leave the interpreter mid-statement; drop it.
		if ctx.Err() != nil {
			logging.ExpressionWarn("evaluation of %q aborted: %v", expression, ctx.Err())
			return 0, fmt.Errorf("evaluation aborted: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %v", ErrUndefined, err)
	}
	e.release(i)

	if math.IsNaN(v) || math.IsInf(v, 0) {
		logging.ExpressionDebug("%v returned for expression %q", v, expression)
		return 0, ErrUndefined
	}
	return v, nil
}

func eval(ctx context.Context, i *interp.Interpreter, src string) (result float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()

	rv, err := i.EvalWithContext(ctx, src)
	if err != nil {
		return 0, err
	}
	if !rv.IsValid() || rv.Kind() != reflect.Float64 {
		return 0, fmt.Errorf("expression did not produce a number")
	}
	return rv.Float(), nil
}

func (e *Engine) acquire() (*interp.Interpreter, error) {
	select {
	case i := <-e.idle:
		return i, nil
	default:
		return newInterpreter()
	}
}

func (e *Engine) release(i *interp.Interpreter) {
	select {
	case e.idle <- i:
	default:
	}
}

// newInterpreter creates an interpreter with only the math package loaded.
func newInterpreter() (*interp.Interpreter, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(interp.Exports{"math/math": stdlib.Symbols["math/math"]}); err != nil {
		return nil, fmt.Errorf("failed to load math symbols: %w", err)
	}
	if _, err := i.Eval(`import "math"`); err != nil {
		return nil, fmt.Errorf("failed to import math: %w", err)
	}
	return i, nil
}
