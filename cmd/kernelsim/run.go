package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kernel64/internal/proc"
)

// workload names the built-in scenarios newRunCmd can drive, each
// grounded on one of spec.md §8's end-to-end scenarios.
const (
	workloadRoundRobin = "roundrobin"
	workloadPreempt    = "preempt"
	workloadIdle       = "idle"
	workloadEndOfProc  = "endofproc"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var workload string
	var ticks int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a built-in scheduling scenario and report descriptor quanta",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := newKernel(flags)
			switch workload {
			case workloadRoundRobin:
				runRoundRobin(k, ticks)
			case workloadPreempt:
				runPreempt(k, ticks)
			case workloadIdle:
				k.tick(ticks)
			case workloadEndOfProc:
				runEndOfProcess(k)
			default:
				return fmt.Errorf("unknown workload %q (want one of %s, %s, %s, %s)",
					workload, workloadRoundRobin, workloadPreempt, workloadIdle, workloadEndOfProc)
			}
			report(cmd, k)
			return nil
		},
	}

	cmd.Flags().StringVar(&workload, "workload", workloadRoundRobin,
		"scenario to run: roundrobin, preempt, idle, endofproc")
	cmd.Flags().IntVar(&ticks, "ticks", 10,
		"self-tick budget each workload descriptor spends before returning")

	return cmd
}

// selfTicking builds an EntryFunc that calls the timer handler
// directly rounds times. A descriptor only calls this while it is
// current — once its quantum expires and get_next_process picks
// someone else, the call inside the loop is exactly where SwitchTo
// parks this descriptor's context until it is resumed, so the loop
// continues precisely where it left off.
func selfTicking(k *kernel, rounds int) proc.EntryFunc {
	return func(self *proc.Descriptor, argv []uint64) {
		for i := 0; i < rounds; i++ {
			k.handler.HandleTick()
		}
	}
}

// runRoundRobin grounds spec.md §8 scenario 1: three NORM descriptors
// with identical loops should accumulate total_quantum within a
// couple of ticks of one another once every descriptor has exhausted
// its self-tick budget. All three are spawned while butler is still
// KERN priority, so they queue up in order without any switch firing
// early; start() then demotes butler and lets get_next_process pick
// A off the head of the NORM queue.
func runRoundRobin(k *kernel, ticks int) {
	k.spawn("A", proc.Norm, selfTicking(k, ticks))
	k.spawn("B", proc.Norm, selfTicking(k, ticks))
	k.spawn("C", proc.Norm, selfTicking(k, ticks))

	k.start()
}

// runPreempt grounds spec.md §8 scenario 2: A (NORM) runs first, then
// B (HIGH) is created mid-run and must immediately become current —
// proc.Ready's synchronous-switch path fires the moment B is readied
// at a higher priority than A, with no timer tick required.
func runPreempt(k *kernel, ticks int) {
	var spawnedB bool
	k.spawn("A", proc.Norm, func(self *proc.Descriptor, argv []uint64) {
		for i := 0; i < ticks; i++ {
			if i == 1 && !spawnedB {
				spawnedB = true
				k.spawn("B", proc.High, selfTicking(k, ticks))
			}
			k.handler.HandleTick()
		}
	})

	k.start()
}

// runEndOfProcess grounds spec.md §8 scenario 6: a NORM descriptor
// whose entry simply returns must, within one tick of returning, no
// longer be current and no longer appear in any ready queue.
func runEndOfProcess(k *kernel) {
	k.spawn("short-lived", proc.Norm, func(self *proc.Descriptor, argv []uint64) {
		// returns immediately, triggering proc.Trampoline.
	})
	k.start()
}

func report(cmd *cobra.Command, k *kernel) {
	for _, d := range k.registry.Descriptors() {
		fmt.Fprintf(cmd.OutOrStdout(), "pid=%d name=%-12s priority=%-4s status=%-8s total_quantum=%d\n",
			d.PID, d.Name, d.Priority, d.Status, d.TotalQuantum)
	}
}
