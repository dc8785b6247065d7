// Command kernelsim drives the scheduler/process/interrupt-controller
// core over internal/sched's SimPlatform, exercising the end-to-end
// scenarios spec.md §8 describes without any real hardware.
//
// Grounded on arctir-proctor's cobra/pflag root-command wiring
// (proctor/cmd/cmd.go's SetupCLI, cmd/main.go's Execute-and-exit
// shape).
package main

import (
	"fmt"
	"os"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "kernelsim: invariant violation: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
