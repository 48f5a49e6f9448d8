// Package metrics exposes Prometheus counters and histograms for directive
// evaluations. Metrics live on a private registry so that tests and embedding
// programs never collide with the global default registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doccalc/internal/logging"
)

// OutcomeOK labels an evaluation that produced a value.
const OutcomeOK = "ok"

// Metrics holds the collectors for directive evaluations.
type Metrics struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	batchRuns   prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "doccalc",
			Name:      "evaluations_total",
			Help:      "Directive evaluations by directive and outcome (ok or the returned error code).",
		}, []string{"directive", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "doccalc",
			Name:      "evaluation_seconds",
			Help:      "Time spent evaluating a directive.",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1, 2},
		}, []string{"directive"}),
		batchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doccalc",
			Name:      "batch_runs_total",
			Help:      "Completed batch runs.",
		}),
	}
	m.registry.MustRegister(m.evaluations, m.duration, m.batchRuns)
	return m
}

// Observe records one evaluation. A nil *Metrics discards the observation.
func (m *Metrics) Observe(directive, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(directive, outcome).Inc()
	m.duration.WithLabelValues(directive).Observe(elapsed.Seconds())
}

// BatchCompleted counts a finished batch run.
func (m *Metrics) BatchCompleted() {
	if m == nil {
		return
	}
	m.batchRuns.Inc()
}

// Registry returns the private registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logging.Metrics("serving metrics on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.MetricsError("metrics server shutdown: %v", err)
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
