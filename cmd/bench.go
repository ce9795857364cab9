package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/olivierh59500/particle-emitter-go/physics"
)

// BenchResult summarizes a headless run
type BenchResult struct {
	Ticks          int
	Elapsed        time.Duration
	Emitted        int
	Contacts       int
	RepulsionFault int
	Live           int
}

// TicksPerSecond is the wall-clock throughput of the run
func (r BenchResult) TicksPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ticks) / r.Elapsed.Seconds()
}

func newBenchCmd() *cobra.Command {
	var (
		ticks     int
		repulsion bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Advance a headless simulation for a number of ticks and report throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticks <= 0 {
				return fmt.Errorf("--ticks must be positive, got %d", ticks)
			}
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			logger := loggerFrom(ctx)

			sim, err := newSimulation(cfg, logger)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("repulsion") {
				m := sim.Modes()
				m.Repulsion = repulsion
				sim.SetModes(m)
			}

			dt := cfg.Arena.TimeScale / float64(cfg.Arena.TPS)
			res, err := runBench(ctx, sim, ticks, dt)
			logger.Info("bench finished",
				zap.Int("ticks", res.Ticks),
				zap.Duration("elapsed", res.Elapsed),
				zap.Float64("ticks_per_second", res.TicksPerSecond()),
				zap.Int("live", res.Live),
				zap.Int("repulsion_faults", res.RepulsionFault),
			)
			printBench(cmd.OutOrStdout(), res)
			return err
		},
	}
	cmd.Flags().IntVarP(&ticks, "ticks", "n", 5000, "number of ticks to run")
	cmd.Flags().BoolVar(&repulsion, "repulsion", false, "force the repulsion field on or off")
	return cmd
}

// runBench advances sim n times by dt, stopping early if ctx is cancelled
func runBench(ctx context.Context, sim *physics.Simulation, n int, dt float64) (BenchResult, error) {
	var res BenchResult
	start := time.Now()
	for res.Ticks < n {
		if res.Ticks%256 == 0 {
			if err := ctx.Err(); err != nil {
				res.Elapsed = time.Since(start)
				res.Live = len(sim.Live(nil))
				return res, err
			}
		}
		stats := sim.Advance(dt)
		res.Ticks++
		if stats.Emitted {
			res.Emitted++
		}
		if stats.EmitterContact.Any() {
			res.Contacts++
		}
		if stats.RepulsionErr != nil {
			res.RepulsionFault++
		}
	}
	res.Elapsed = time.Since(start)
	res.Live = len(sim.Live(nil))
	return res, nil
}

func printBench(w io.Writer, r BenchResult) {
	fmt.Fprintf(w, "ticks:            %d\n", r.Ticks)
	fmt.Fprintf(w, "elapsed:          %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "ticks/s:          %.1f\n", r.TicksPerSecond())
	fmt.Fprintf(w, "emitted:          %d\n", r.Emitted)
	fmt.Fprintf(w, "emitter contacts: %d\n", r.Contacts)
	fmt.Fprintf(w, "live particles:   %d\n", r.Live)
	fmt.Fprintf(w, "repulsion faults: %d\n", r.RepulsionFault)
}
