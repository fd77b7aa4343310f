package main

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/helmuthdu/stateit/internal/config"
	"github.com/helmuthdu/stateit/pkg/metrics"
	"github.com/helmuthdu/stateit/pkg/stateit"
)

// settleWait gives the shared flush queue time to run the final window
// after the last writer finishes.
const settleWait = 100 * time.Millisecond

func runCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a benchmark scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := applyFlagOverrides(cmd, &sc); err != nil {
				return err
			}
			return runBench(sc, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML scenario file")
	cmd.Flags().Int("stores", 0, "number of stores (overrides scenario)")
	cmd.Flags().Int("writers", 0, "number of writer goroutines (overrides scenario)")
	cmd.Flags().Int("sets", 0, "sets per writer (overrides scenario)")
	cmd.Flags().Int("listeners", 0, "full-state listeners per store (overrides scenario)")
	cmd.Flags().Int("selector-listeners", 0, "selector subscriptions per store (overrides scenario)")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

func applyFlagOverrides(cmd *cobra.Command, sc *config.Scenario) error {
	flags := cmd.Flags()
	if flags.Changed("stores") {
		sc.Stores, _ = flags.GetInt("stores")
	}
	if flags.Changed("writers") {
		sc.Writers, _ = flags.GetInt("writers")
	}
	if flags.Changed("sets") {
		sc.SetsPerWriter, _ = flags.GetInt("sets")
	}
	if flags.Changed("listeners") {
		sc.Listeners, _ = flags.GetInt("listeners")
	}
	if flags.Changed("selector-listeners") {
		sc.SelectorListeners, _ = flags.GetInt("selector-listeners")
	}
	if flags.Changed("metrics-addr") {
		sc.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	return sc.Validate()
}

type benchCounters struct {
	sets       atomic.Uint64
	deliveries atomic.Uint64
	selectors  atomic.Uint64
}

// mutator is the mutation surface shared by plain and instrumented
// stores.
type mutator interface {
	Set(m stateit.Mutation[map[string]any]) error
}

func runBench(sc config.Scenario, out io.Writer) error {
	var counters benchCounters

	var prov *metrics.Provider
	if sc.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		prov = metrics.NewProvider(metrics.WithRegistry(registry))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go http.ListenAndServe(sc.MetricsAddr, mux)
		fmt.Fprintf(out, "serving metrics on %s/metrics\n", sc.MetricsAddr)
	}

	targets := make([]mutator, sc.Stores)
	for i := 0; i < sc.Stores; i++ {
		st := stateit.New(initialPayload(sc.PayloadKeys),
			stateit.WithName[map[string]any](fmt.Sprintf("bench-%d", i)),
		)

		for l := 0; l < sc.Listeners; l++ {
			st.Subscribe(func(next, prev map[string]any) {
				counters.deliveries.Add(1)
			})
		}
		for l := 0; l < sc.SelectorListeners; l++ {
			stateit.SubscribeTo(st,
				func(s map[string]any) any { return s["k0"] },
				func(next, prev any) {
					counters.selectors.Add(1)
				})
		}

		if prov != nil {
			targets[i] = metrics.InstrumentWith(prov, st)
		} else {
			targets[i] = st
		}
	}

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < sc.Writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < sc.SetsPerWriter; i++ {
				target := targets[(w+i)%len(targets)]
				target.Set(stateit.Patch(map[string]any{
					"k0": w*sc.SetsPerWriter + i,
				}))
				counters.sets.Add(1)
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	time.Sleep(settleWait)

	sets := counters.sets.Load()
	fmt.Fprintf(out, "stores=%d writers=%d sets/writer=%d listeners=%d+%d\n",
		sc.Stores, sc.Writers, sc.SetsPerWriter, sc.Listeners, sc.SelectorListeners)
	fmt.Fprintf(out, "sets:                %d in %s (%.0f/s)\n",
		sets, elapsed.Round(time.Millisecond), float64(sets)/elapsed.Seconds())
	fmt.Fprintf(out, "full deliveries:     %d\n", counters.deliveries.Load())
	fmt.Fprintf(out, "selector deliveries: %d\n", counters.selectors.Load())
	return nil
}

func initialPayload(keys int) map[string]any {
	payload := make(map[string]any, keys)
	for i := 0; i < keys; i++ {
		payload[fmt.Sprintf("k%d", i)] = 0
	}
	return payload
}
