package calc

import (
	"context"
	"sort"
	"time"

	"doccalc/internal/expr"
	"doccalc/internal/logging"
	"doccalc/internal/metrics"
	"doccalc/internal/params"
)

// Calculator evaluates one directive.
type Calculator interface {
	// Name is the directive name the calculator is registered under.
	Name() string
	// Slots lists the logical parameters the directive reads.
	Slots() []params.Slot
	// Calculate returns the rendered result or an error code.
	Calculate(ctx context.Context, target string, local, document params.Set) string
}

// Directive describes a registered calculator.
type Directive struct {
	Name  string
	Slots []params.Slot
}

// FirstPosition returns the index bare positional arguments start at: the
// lowest slot position, or 0 when the directive takes free operands.
func (d Directive) FirstPosition() int {
	first := -1
	for _, s := range d.Slots {
		if s.Position == params.NoPosition {
			continue
		}
		if first == -1 || s.Position < first {
			first = s.Position
		}
	}
	if first == -1 {
		return 0
	}
	return first
}

// Options configures the built-in calculators.
type Options struct {
	// Clock and Location configure calc_date. See DateShift.
	Clock    Clock
	Location *time.Location
	// Engine evaluates calc_exp expressions. Its License is the attestor.
	// A default engine is created when nil.
	Engine *expr.Engine
	// Metrics receives one observation per evaluation. May be nil.
	Metrics *metrics.Metrics
}

// Registry dispatches invocations to calculators by directive name.
type Registry struct {
	calculators map[string]Calculator
	metrics     *metrics.Metrics
}

// NewRegistry creates a registry holding calc, calc_date and calc_exp.
func NewRegistry(opts Options) *Registry {
	engine := opts.Engine
	if engine == nil {
		engine = expr.NewEngine(expr.DefaultOptions())
	}
	r := &Registry{
		calculators: make(map[string]Calculator),
		metrics:     opts.Metrics,
	}
	r.Register(Arithmetic{})
	r.Register(DateShift{Clock: opts.Clock, Location: opts.Location})
	r.Register(Expression{Engine: engine, Attestor: engine.License()})
	return r
}

// Register adds c, replacing any calculator with the same name.
func (r *Registry) Register(c Calculator) {
	r.calculators[c.Name()] = c
}

// Lookup returns the calculator registered under name.
func (r *Registry) Lookup(name string) (Calculator, bool) {
	c, ok := r.calculators[name]
	return c, ok
}

// Directives lists the registered directives sorted by name.
func (r *Registry) Directives() []Directive {
	out := make([]Directive, 0, len(r.calculators))
	for name, c := range r.calculators {
		out = append(out, Directive{Name: name, Slots: c.Slots()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Evaluate runs the named directive. Unknown directive names yield
// NotAnOperation. Nil parameter layers are treated as empty.
func (r *Registry) Evaluate(ctx context.Context, name, target string, local, document params.Set) string {
	start := time.Now()

	c, ok := r.calculators[name]
	if !ok {
		logging.CalcDebug("unknown directive %q", name)
		r.metrics.Observe("unknown", NotAnOperation.String(), time.Since(start))
		return NotAnOperation.String()
	}

	logging.CalcDebug("%s:%s[%v] document=%v", name, target, local, document)
	result := c.Calculate(ctx, target, local.Clone(), document.Clone())

	outcome := metrics.OutcomeOK
	if code, isCode := AsCode(result); isCode {
		outcome = code.String()
	}
	elapsed := time.Since(start)
	r.metrics.Observe(name, outcome, elapsed)
	logging.CalcDebug("%s:%s = %s (%v)", name, target, result, elapsed)
	return result
}
