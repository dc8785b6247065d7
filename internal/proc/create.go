package proc

import (
	"unsafe"

	"kernel64/internal/bitfield"
	"kernel64/internal/mem"
)

// Create implements spec.md §4.B's create_process(name, entry, argc,
// argv):
//  1. allocates a descriptor and a dedicated stack;
//  2. assigns the next pid atomically;
//  3. sets priority = NORM, status = INIT, quantum = 0;
//  4. copies the name (truncated);
//  5. links into the global registry at the tail;
//  6. lays out the new stack (captured here as a Frame rather than
//     raw bytes — see the Descriptor.Frame field doc);
//  7. stores saved_rsp/saved_page_root/saved_ss;
//  8. calls Ready on the new descriptor;
//  9. returns the descriptor, or nil on allocation failure.
//
// codeSeg and dataSeg stand in for the kernel code/data segment
// selectors spec.md §4.B point 6 copies into the hardware return
// frame and the four segment-register slots; pageRoot is the current
// address-space root to capture into saved_page_root (this core is
// single-address-space, so callers pass the same root every time).
func Create(arena *mem.Arena, name string, entry EntryFunc, argv []uint64, codeSeg, dataSeg, pageRoot uint64) *Descriptor {
	stack := arena.AllocStack()
	if !stack.Valid() {
		return nil
	}

	bytes := stack.Bytes()
	d := &Descriptor{
		PID:       registry.allocPID(),
		Name:      truncateName(name),
		Status:    Init,
		Priority:  Norm,
		Quantum:   0,
		StackBase: uintptr(unsafe.Pointer(&bytes[0])),
		stack:     stack,
		Entry:     entry,
		Argv:      argv,
	}
	d.StatusLink.SelfLoop()

	top := uint64(len(stack.Bytes()))
	d.Frame = Frame{
		SS:     dataSeg,
		RSP:    top,
		RFLAGS: bitfield.ProcFlags(), // PROC_FLAGS (0x202): interrupts enabled, reserved bit set
		CS:     codeSeg,
		RIP:    0, // the real IP would be &entry; Entry is invoked directly instead
		DS:     dataSeg,
		ES:     dataSeg,
		FS:     dataSeg,
		GS:     dataSeg,
		Resume: resumeTargetSentinel,
	}

	d.SavedRSP = top
	d.SavedSS = dataSeg
	d.SavedPageRoot = pageRoot

	registry.insert(d)
	Ready(d)
	return d
}

// resumeTargetSentinel stands in for "the address of the task-swap
// resume target" spec.md §4.B point 6 places at the final stack slot.
// There being no literal code address to take in a hosted build, it
// is a fixed non-zero marker a test can assert survived the layout.
const resumeTargetSentinel = ^uint64(0)

// Reap sweeps ENDING and ZOMBIE descriptors out of the global
// registry and frees their stacks, the reaper spec.md §9 calls for
// to resolve the end-of-process resource leak the source
// acknowledges but never fixes. Intended to be called periodically
// from the bootstrap descriptor's own idle loop, per spec.md's
// suggestion ("e.g., the bootstrap descriptor").
func Reap(arena *mem.Arena) int {
	reaped := 0
	for _, d := range registry.Descriptors() {
		if d.Status != Ending && d.Status != Zombie {
			continue
		}
		arena.Free(d.stack)
		registry.remove(d)
		reaped++
	}
	return reaped
}
