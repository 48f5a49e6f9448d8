package batch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"doccalc/internal/logging"
	"doccalc/internal/metrics"
	"doccalc/internal/params"
)

// Evaluator runs a single directive. *calc.Registry implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, name, target string, local, document params.Set) string
}

// Runner evaluates the directives of a batch file concurrently.
type Runner struct {
	eval     Evaluator
	workers  int
	document params.Set
	metrics  *metrics.Metrics
}

// NewRunner creates a Runner with at most workers evaluations in flight.
// document is the document layer used for files that declare none.
func NewRunner(eval Evaluator, workers int, document params.Set, m *metrics.Metrics) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		eval:     eval,
		workers:  workers,
		document: document.Clone(),
		metrics:  m,
	}
}

// Run evaluates every directive in f. Results keep the directive order.
// Cancelling ctx stops scheduling further directives and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, f *File) (*Report, error) {
	log := logging.WithRequestID(logging.CategoryBatch, uuid.NewString()).
		WithField("directives", len(f.Directives))
	runID := log.RequestID()
	timer := logging.StartTimer(logging.CategoryBatch, "batch run "+runID)

	document := f.Document
	if document == nil {
		document = r.document
	}

	results := make([]Result, len(f.Directives))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)

	for i, d := range f.Directives {
		i, d := i, d
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = Result{
				ID:     d.ID,
				Name:   d.Name,
				Target: d.Target,
				Result: r.eval.Evaluate(egCtx, d.Name, d.Target, d.Params, document),
			}
			log.Debug("%s %s:%s = %s", d.ID, d.Name, d.Target, results[i].Result)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		log.Warn("batch run aborted after %v: %v", timer.Stop(), err)
		return nil, fmt.Errorf("batch run %s: %w", runID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch run %s: %w", runID, err)
	}

	r.metrics.BatchCompleted()
	log.Info("evaluated %d directives in %v", len(results), timer.Stop())
	return &Report{RunID: runID, Results: results}, nil
}

// RunFile loads path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*Report, error) {
	f, err := Load(path)
	if err != nil {
		logging.BatchError("%v", err)
		return nil, err
	}
	return r.Run(ctx, f)
}
