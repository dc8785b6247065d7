package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// globalFlags mirrors the teacher-pack convention of a small shared
// options struct threaded through subcommands rather than reading
// cobra flags ad hoc in every RunE (see arctir-proctor's newOptions).
type globalFlags struct {
	hz    uint32
	debug bool
	quiet bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "kernelsim",
		Short: "Simulate the scheduler/process/interrupt-controller core",
		Long: "kernelsim runs the preemptive priority scheduler, process " +
			"lifecycle machinery, and legacy interrupt-controller driver " +
			"over a hosted simulation (internal/sched.SimPlatform) so the " +
			"core's end-to-end behavior can be observed without hardware.",
	}

	addGlobalFlags(root.PersistentFlags(), flags)
	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newBenchCmd(flags))
	root.AddCommand(newTraceCmd(flags))

	return root
}

func addGlobalFlags(fs *pflag.FlagSet, flags *globalFlags) {
	fs.Uint32Var(&flags.hz, "hz", 500, "timer frequency in Hz; not read by any subcommand (the simulation ticks once per HandleTick call, not on a clock)")
	fs.BoolVar(&flags.debug, "debug", false, "enable debug-level scheduler-transition logging")
	fs.BoolVar(&flags.quiet, "quiet", false, "suppress the debug console entirely (console.Disabled)")
}
