//go:build linux && amd64

// Package amd64 declares the real hardware primitives this core needs
// on a uniprocessor x86-64 host: port I/O, interrupt enable/disable,
// page-root (CR3) load, and a debug breakpoint trap. Each is declared
// here with no body and linked to an assembly symbol of the same name
// in asm_amd64.s, exactly the pattern the teacher uses throughout
// src/mazboot/golang/main (e.g. timer_qemu.go's
// "//go:linkname read_cntv_ctl_el0 read_cntv_ctl_el0" /
// "//go:nosplit" / "func read_cntv_ctl_el0() uint32", and
// src/kernel.go's "//go:linkname mmio_write mmio_write").
package amd64

import (
	_ "unsafe" // for go:linkname

	"golang.org/x/sys/unix"
)

//go:linkname outb outb
//go:nosplit
func outb(port uint16, val byte)

//go:linkname inb inb
//go:nosplit
func inb(port uint16) byte

//go:linkname cli cli
//go:nosplit
func cli()

//go:linkname sti sti
//go:nosplit
func sti()

//go:linkname loadCR3 load_cr3
//go:nosplit
func loadCR3(root uint64)

//go:linkname readCR3 read_cr3
//go:nosplit
func readCR3() uint64

//go:linkname breakpoint breakpoint
//go:nosplit
func breakpoint()

var ioplGranted bool

// grantIOPL requests I/O-privilege level 3 exactly once, the
// userspace-Linux equivalent of the ring-0 "port I/O is always
// allowed" assumption the rest of this core makes. Real ring-0
// deployments never call this; it exists for the (unsupported but
// honest) case of running the hardware PortBus under a hosted Linux
// kernel for bring-up testing on real silicon.
func grantIOPL() error {
	if ioplGranted {
		return nil
	}
	if err := unix.Iopl(3); err != nil {
		return err
	}
	ioplGranted = true
	return nil
}

// PortBus is the real hardware pic.PortBus / timer port-I/O backend.
type PortBus struct{}

// NewPortBus returns the real hardware PortBus, granting I/O port
// permission on first use.
func NewPortBus() (*PortBus, error) {
	if err := grantIOPL(); err != nil {
		return nil, err
	}
	return &PortBus{}, nil
}

func (PortBus) Outb(port uint16, val byte) { outb(port, val) }
func (PortBus) Inb(port uint16) byte       { return inb(port) }

// DisableInterrupts and EnableInterrupts wrap cli/sti, mirroring the
// teacher's asm.EnableIrqs()/DisableIrqs() naming convention for the
// equivalent ARM64 primitive.
func DisableInterrupts() { cli() }
func EnableInterrupts()  { sti() }

// LoadPageRoot installs root as CR3, the address-space-root step of
// sched.SwitchTo (spec.md §4.C step 2).
func LoadPageRoot(root uint64) { loadCR3(root) }

// ReadPageRoot reads the currently installed CR3, used when capturing
// an outgoing descriptor's saved_page_root (spec.md §4.D step 7).
func ReadPageRoot() uint64 { return readCR3() }

// Breakpoint traps via int3, the invariant-violation failure path
// spec.md §7 describes ("the handler traps via a breakpoint").
func Breakpoint() { breakpoint() }
