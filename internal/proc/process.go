package proc

import "sync"

// Scheduler is the boundary the process module depends on, supplying
// the queue-enqueue and context-replacement primitives spec.md §2
// assigns to component C ("exposes queue-enqueue primitives for the
// Process module"). Defining the interface here — rather than having
// this package import the scheduler package directly — lets
// component C depend on component B's Descriptor type without a
// cycle, matching spec.md §9's "single abstraction with two-or-more
// concrete providers" polymorphism note, applied at this seam instead
// of only at the interrupt-controller one.
type Scheduler interface {
	// SetCurrent installs d as the running descriptor, used once at
	// bootstrap to hand the scheduler the butler descriptor Init
	// creates.
	SetCurrent(d *Descriptor)
	// ReadyAdd enqueues d at the tail of the ready queue matching
	// d.Priority (spec.md §4.C's ready_kern_add..ready_idle_add,
	// collapsed to one call dispatching on priority).
	ReadyAdd(d *Descriptor)
	// GetNext implements spec.md §4.C's get_next_process selection
	// algorithm.
	GetNext() *Descriptor
	// SwitchTo performs the context replacement described in
	// spec.md §4.C, including installing d as current and issuing
	// EOI when eoiFlag is set. It is intentionally side-effecting
	// only; the simulated scheduler resumes the target goroutine
	// synchronously before returning, since this core has no real
	// stack-frame unwind to perform.
	SwitchTo(d *Descriptor, eoiFlag bool)
}

var (
	stateMu  sync.Mutex
	sched    Scheduler
	current  *Descriptor
	registry *Registry
	butler   *Descriptor
)

// Bind installs the scheduler this package delegates to. Must be
// called once, before Init, normally from the scheduler's own
// initialization (spec.md §4.C "Scheduler initialization").
func Bind(s Scheduler) {
	stateMu.Lock()
	defer stateMu.Unlock()
	sched = s
}

// Init creates the bootstrap "butler" descriptor (pid 1, KERN
// priority, RUNNING), per spec.md §4.B process_init. It resets the
// pid counter to 2 via NewRegistry and returns the new global
// registry and the bootstrap descriptor. Must be called exactly once,
// before any scheduler enable.
func Init() (*Registry, *Descriptor) {
	stateMu.Lock()
	defer stateMu.Unlock()

	registry = NewRegistry()
	b := &Descriptor{
		PID:      1,
		Name:     "butler",
		Status:   Running,
		Priority: Kern,
		Quantum:  uint8(Kern),
	}
	b.StatusLink.SelfLoop()
	registry.insertHead(b)
	current = b
	butler = b
	if sched != nil {
		sched.SetCurrent(b)
	}
	return registry, b
}

// Current returns the presently running descriptor.
func Current() *Descriptor {
	stateMu.Lock()
	defer stateMu.Unlock()
	return current
}

// Reg returns the global registry created by Init.
func Reg() *Registry {
	stateMu.Lock()
	defer stateMu.Unlock()
	return registry
}

// NoteCurrent records the scheduler's new idea of `current` in this
// package's own copy of the global state (spec.md §9: "current" is
// named explicitly as core-wide mutable state). The scheduler package
// calls this at the end of SwitchTo, after it has made p current on
// its own side.
func NoteCurrent(d *Descriptor) {
	stateMu.Lock()
	current = d
	stateMu.Unlock()
}

// Ready implements spec.md §4.B's ready_process(p):
//  1. removes p from whichever status queue holds it;
//  2. if p's priority exceeds current's, synchronously yields into p;
//  3. otherwise enqueues p at the tail of its ready queue.
//
// Must be called with interrupts disabled on real hardware; the
// simulated scheduler achieves the equivalent exclusion with its own
// lock, so callers in this core need take no extra action.
func Ready(p *Descriptor) {
	p.StatusLink.Unlink()

	cur := Current()
	if cur != nil && p.Priority > cur.Priority {
		p.Status = Ready
		sched.SwitchTo(p, false)
		return
	}

	p.Status = Ready
	sched.ReadyAdd(p)
}

// ResetQuantum implements process_reset_quantum: refills p's quantum
// from its priority, preserving invariant "quantum <= priority".
func ResetQuantum(p *Descriptor) {
	p.Quantum = uint8(p.Priority)
}

// SetPriority implements process_set_priority: assigns pty if it is
// one of the five defined priorities, otherwise coerces to NORM
// (spec.md §4.B, §8 boundary behavior). It does not relocate p within
// whatever ready queue currently holds it — see DESIGN.md's
// resolution of the corresponding open question in spec.md §9.
func SetPriority(p *Descriptor, pty Priority) {
	if pty.Valid() {
		p.Priority = pty
	} else {
		p.Priority = Norm
	}
}

// Trampoline is invoked when a created descriptor's entry function
// returns (spec.md §4.B "End-of-process trampoline"). It marks the
// descriptor ENDING, unlinks it from its status queue, and switches
// into whatever the scheduler selects next. It never returns.
//
// get_next_process selects purely on priority and queue occupancy; it
// has no notion of ENDING, so when self is the last descriptor ready
// at its own priority tier (and above), it is returned again as its
// own successor, unchanged since it is still current at the moment of
// the call. Left alone this would contradict spec.md §8 scenario 6's
// "must no longer appear as current" guarantee, so Trampoline falls
// back to the butler descriptor in that one case — consistent with
// spec.md §9 casting butler as the kernel's permanent, always-present
// thread of execution, and with DESIGN.md's reaper note already
// assuming butler survives every other descriptor.
func Trampoline(self *Descriptor) {
	self.Status = Ending
	self.StatusLink.Unlink()
	next := sched.GetNext()
	if next == self {
		stateMu.Lock()
		b := butler
		stateMu.Unlock()
		if b != nil && b != self {
			next = b
		}
	}
	sched.SwitchTo(next, false)
}
