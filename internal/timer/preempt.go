package timer

import (
	"kernel64/internal/pic"
	"kernel64/internal/proc"
	"kernel64/internal/sched"
)

// Handler owns the wiring between the interrupt controller and the
// scheduler that spec.md §4.D's tick handler needs: it decrements the
// running descriptor's quantum, consults the scheduler for the next
// descriptor, and on expiry drives the context switch.
type Handler struct {
	sched *sched.State
}

// New creates a Handler bound to s, and programs the PIT to
// DesignFrequency over bus — spec.md §4.C's "programs the hardware
// timer to a design frequency (nominally 500 Hz)".
func New(s *sched.State, bus pic.PortBus) *Handler {
	Program(bus, DesignFrequency)
	return &Handler{sched: s}
}

// Install registers HandleTick on the scheduler's timer line, the
// remaining step of spec.md §4.C's initialization sequence this
// package owns ("registers the timer handler on the timer vector and
// enables the timer line" — pic.Controller.Register does both, per
// its own doc comment).
func (h *Handler) Install() {
	h.sched.RegisterTimerHandler(h.HandleTick)
}

// CaptureFrame records the register frame spec.md §4.D step 6 says
// to lay down on the outgoing descriptor's stack. On real hardware
// this is filled from the hardware interrupt frame and the
// work-register saves the assembly entry stub performs before
// calling into this handler; this hosted core has no such frame to
// read, so HandleTick is given a zero Frame by default and callers
// that want to exercise the exact byte layout (e.g. a test asserting
// spec.md §8's round-trip property) pass one explicitly via
// HandleTickWithFrame.
func CaptureFrame() proc.Frame { return proc.Frame{} }

// HandleTick implements spec.md §4.D's eight-step tick handler, using
// a zero-value captured frame (see CaptureFrame).
func (h *Handler) HandleTick() {
	h.HandleTickWithFrame(CaptureFrame())
}

// HandleTickWithFrame is HandleTick parameterized by the captured
// register frame, split out so tests can supply a specific frame and
// assert it survives a context-switch round trip.
func (h *Handler) HandleTickWithFrame(frame proc.Frame) {
	// Step 2: increment the global tick counter.
	h.sched.Tick()

	current := h.sched.Current()
	if current == nil {
		return
	}

	// Step 3: decrement quantum, increment total_quantum.
	if current.Quantum > 0 {
		current.Quantum--
	}
	current.TotalQuantum++

	// Step 4: quantum not yet exhausted, take the EOI path.
	if current.Quantum > 0 {
		h.eoi()
		return
	}

	// Step 5: ask the scheduler for the next descriptor.
	next := h.sched.GetNext()
	if next == current {
		proc.ResetQuantum(current)
		h.eoi()
		return
	}

	// Steps 6-7: capture the register frame and the CPU-state
	// anchors onto the outgoing descriptor.
	current.Frame = frame
	current.SavedSS = frame.SS
	current.SavedRSP = frame.RSP
	// SavedPageRoot is left as-is: this core is single-address-space,
	// so there is nothing new to capture for it on each switch.

	// Step 8: switch_to(next, eoi_flag = 1). Control does not
	// return on real hardware; here it returns once next's goroutine
	// has been resumed and this one has been suspended in turn.
	h.sched.SwitchTo(next, true)
}

// eoi implements the "EOI path": acknowledge the timer line. Popping
// the saved work registers and executing an interrupt-return are
// real-hardware-only steps with no hosted equivalent; HandleTick
// simply returns to its caller (the simulated interrupt dispatch),
// which plays the same role.
func (h *Handler) eoi() {
	h.sched.Controller().EOI(sched.TimerVector)
}
