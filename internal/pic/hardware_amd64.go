//go:build linux && amd64

package pic

import "kernel64/internal/arch/amd64"

// NewHardwareBus returns the real legacy-PIC PortBus, requesting I/O
// port permission via golang.org/x/sys/unix.Iopl on first use (see
// internal/arch/amd64.NewPortBus). This is the production backend on
// real x86-64 hardware; every test in this repository uses
// NewSimulatedBus instead.
func NewHardwareBus() (PortBus, error) {
	return amd64.NewPortBus()
}
