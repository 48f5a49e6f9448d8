package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"doccalc/internal/batch"
	"doccalc/internal/logging"
	"doccalc/internal/metrics"
)

func newBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file>",
		Short: "Evaluate every directive in a YAML batch file",
		Long: `Evaluate every directive in a YAML batch file and print a YAML report.

The file's document section supplies the document attributes; when it has
none, the attributes from the configuration are used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := a.runner(nil)
			if err != nil {
				return err
			}
			report, err := runner.RunFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report.WriteYAML(cmd.OutOrStdout())
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-evaluate a batch file whenever it changes",
		Long: `Evaluate a batch file, then watch it and print a fresh report after
every change until interrupted.

When metrics are enabled in the configuration (or --metrics-addr is given),
Prometheus metrics are served at /metrics on that address.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := metricsAddr
			if addr == "" && a.cfg.Metrics.Enabled {
				addr = a.cfg.Metrics.Addr
			}
			var m *metrics.Metrics
			if addr != "" {
				m = metrics.New()
			}
			return a.watch(ctx, cmd, args[0], m, addr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

// watch runs path once, then re-runs it on every change until ctx is done.
func (a *app) watch(ctx context.Context, cmd *cobra.Command, path string, m *metrics.Metrics, addr string) error {
	runner, err := a.runner(m)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	report, err := runner.RunFile(ctx, path)
	if err != nil {
		return err
	}
	if err := report.WriteYAML(out); err != nil {
		return err
	}

	onResult := func(r *batch.Report, err error) {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			return
		}
		fmt.Fprintln(out, "---")
		if err := r.WriteYAML(out); err != nil {
			logging.WatchError("failed to write report: %v", err)
		}
	}

	w, err := batch.NewWatcher(path, runner, a.cfg.GetWatchDebounce(), onResult)
	if err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	if addr != "" {
		eg.Go(func() error { return m.Serve(egCtx, addr) })
	}
	eg.Go(func() error {
		if err := w.Start(egCtx); err != nil {
			return err
		}
		<-egCtx.Done()
		w.Stop()
		st := w.Stats()
		logging.Watch("stopped after %d changes, %d re-runs, %d errors", st.Events, st.Runs, st.Errors)
		return nil
	})

	logging.Boot("watching %s (debounce %v)", path, a.cfg.GetWatchDebounce())
	return eg.Wait()
}

// runner builds a batch runner from the loaded configuration.
func (a *app) runner(m *metrics.Metrics) (*batch.Runner, error) {
	reg, err := a.registry(m)
	if err != nil {
		return nil, err
	}
	return batch.NewRunner(reg, a.cfg.Batch.Workers, a.cfg.DocumentParams(), m), nil
}
