package main

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"kernel64/internal/proc"
)

// newTraceCmd dumps full descriptor state after running a
// two-descriptor version of the `run roundrobin` workload (A and B,
// both NORM), for debugging the internal fields
// `run`'s one-line-per-descriptor report elides (status-queue
// links, argv, saved frame).
func newTraceCmd(flags *globalFlags) *cobra.Command {
	var ticks int

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump full descriptor state after a round-robin run",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := newKernel(flags)

			k.spawn("A", proc.Norm, selfTicking(k, ticks))
			k.spawn("B", proc.Norm, selfTicking(k, ticks))
			k.start()

			dumper := spew.ConfigState{
				Indent:                  "  ",
				DisablePointerAddresses: true,
				DisableCapacities:       true,
			}
			for _, d := range k.registry.Descriptors() {
				dumper.Fdump(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 10, "self-tick budget each descriptor spends before returning")

	return cmd
}
