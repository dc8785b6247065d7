package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kernel64/internal/proc"
)

// newBenchCmd measures how many timer ticks the core can drive per
// wall-clock second with a fixed population of NORM-priority
// descriptors round-robining until each has spent its --ticks
// budget, a throughput
// figure rather than a scheduling-correctness one (that is what
// `run` checks).
func newBenchCmd(flags *globalFlags) *cobra.Command {
	var workers int
	var ticks int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure ticks-per-second with a fixed pool of round-robin workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := newKernel(flags)

			for i := 0; i < workers; i++ {
				name := fmt.Sprintf("worker-%d", i)
				k.spawn(name, proc.Norm, benchLoop(k, ticks))
			}

			start := time.Now()
			k.start()
			elapsed := time.Since(start)

			var total uint64
			for _, d := range k.registry.Descriptors() {
				total += d.TotalQuantum
			}

			fmt.Fprintf(cmd.OutOrStdout(), "workers=%d ticks_each=%d total_ticks=%d elapsed=%s ticks_per_sec=%.0f\n",
				workers, ticks, total, elapsed, float64(total)/elapsed.Seconds())
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 8, "number of NORM-priority descriptors to round-robin")
	cmd.Flags().IntVar(&ticks, "ticks", 200, "self-tick budget each worker spends before returning")

	return cmd
}

// benchLoop has the same body as run.go's selfTicking; bench reports
// only the aggregate total_quantum across the whole pool, not a
// per-descriptor line.
func benchLoop(k *kernel, rounds int) proc.EntryFunc {
	return func(self *proc.Descriptor, argv []uint64) {
		for i := 0; i < rounds; i++ {
			k.handler.HandleTick()
		}
	}
}
