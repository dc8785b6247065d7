// Package sched implements the scheduler core component C: the five
// priority ready queues and the wait queue, next-process selection,
// and the context-switch primitive, per spec.md §3, §4.C.
package sched

import (
	"sync"
	"unsafe"

	"kernel64/internal/console"
	"kernel64/internal/mem"
	"kernel64/internal/pic"
	"kernel64/internal/proc"
)

// State aggregates the process-wide scheduler structure spec.md §3
// names: an enabled flag, the six queues, the interrupt-handler
// stack, and a global tick counter. It implements proc.Scheduler so
// the process module can enqueue and context-switch descriptors
// without importing this package.
type State struct {
	mu sync.Mutex

	enabled bool

	kern, high, norm, low, idle *proc.Queue
	wait                        *proc.Queue

	current *proc.Descriptor

	controller pic.Controller
	platform   Platform
	log        console.Logger

	ticks uint64

	handlerStack    mem.Addr
	handlerStackTop uintptr
}

// TimerVector is the legacy-PIC line the programmable interval timer
// is wired to, per spec.md §6 ("Legacy interrupt controller ...
// command bytes as in §4.A") and §4.D's EOI path ("issue
// end-of-interrupt for line 0").
const TimerVector = 0

// New builds an empty, disabled scheduler over controller c and
// platform p, per spec.md §4.C's "Scheduler initialization": empties
// all queues, marks the scheduler disabled, allocates the
// interrupt-handler stack, calls into driver A to reprogram the
// controller (leaving every line masked), and binds itself as the
// process module's scheduler. It does not touch the timer line:
// internal/timer's New programs the PIT and Handler.Install registers
// the tick handler and unmasks the line via RegisterTimerHandler.
func New(arena *mem.Arena, c pic.Controller, p Platform, masterVectorBase, slaveVectorBase byte) *State {
	handlerStack := arena.AllocStack()
	s := &State{
		kern:         proc.NewQueue(),
		high:         proc.NewQueue(),
		norm:         proc.NewQueue(),
		low:          proc.NewQueue(),
		idle:         proc.NewQueue(),
		wait:         proc.NewQueue(),
		controller:   c,
		platform:     p,
		handlerStack: handlerStack,
	}
	if handlerStack.Valid() {
		b := handlerStack.Bytes()
		s.handlerStackTop = uintptr(unsafe.Pointer(&b[0])) + uintptr(len(b))
	}
	pic.Init(c, masterVectorBase, slaveVectorBase)
	proc.Bind(s)
	return s
}

// SetLogger attaches l as the destination for scheduler-transition
// debug logging (see SwitchTo). A nil State.log, the zero value, is a
// silent no-op rather than a nil-dereference crash, so callers that
// never call SetLogger (every test in this package) pay nothing.
func (s *State) SetLogger(l console.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = l
}

// HandlerStackTop returns the top address of the dedicated
// interrupt-handler stack spec.md §4.C's initialization allocates.
func (s *State) HandlerStackTop() uintptr {
	return s.handlerStackTop
}

// Enable marks the scheduler ready to preempt, the last step of
// spec.md §4.C's initialization sequence. Registering and arming the
// timer line itself is internal/timer's job (it owns the PIT
// programming detail the Interrupt-Controller driver knows nothing
// about), via RegisterTimerHandler below.
func (s *State) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
}

// Enabled reports whether Enable has run.
func (s *State) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Controller returns the interrupt controller this scheduler was
// built with, so internal/timer can issue EOIs and register the tick
// handler without this package exposing its State's every field.
func (s *State) Controller() pic.Controller {
	return s.controller
}

// RegisterTimerHandler installs h as the handler for TimerVector.
// Called once by internal/timer's initialization.
func (s *State) RegisterTimerHandler(h pic.Handler) {
	s.controller.Register(TimerVector, h)
}

// Tick increments and returns the global tick counter, spec.md §4.D
// step 2's "increment the global tick counter".
func (s *State) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	return s.ticks
}

// Ticks returns the global tick counter without advancing it.
func (s *State) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *State) queueFor(p proc.Priority) *proc.Queue {
	switch p {
	case proc.Kern:
		return s.kern
	case proc.High:
		return s.high
	case proc.Norm:
		return s.norm
	case proc.Low:
		return s.low
	case proc.Idle:
		return s.idle
	default:
		return s.norm
	}
}

// SetCurrent implements proc.Scheduler, installing d as the running
// descriptor (called once, at bootstrap, with the butler descriptor).
func (s *State) SetCurrent(d *proc.Descriptor) {
	s.mu.Lock()
	s.current = d
	s.mu.Unlock()
}

// Current returns the descriptor presently occupying the CPU.
func (s *State) Current() *proc.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ReadyKernAdd, ReadyHighAdd, ReadyNormAdd, ReadyLowAdd, and
// ReadyIdleAdd are the five named queue primitives spec.md §4.C
// lists explicitly ("ready_kern_add .. ready_idle_add: each enqueues
// at the tail of the corresponding ready queue. Used by the Process
// module.").
func (s *State) ReadyKernAdd(d *proc.Descriptor) { s.enqueue(s.kern, d) }
func (s *State) ReadyHighAdd(d *proc.Descriptor) { s.enqueue(s.high, d) }
func (s *State) ReadyNormAdd(d *proc.Descriptor) { s.enqueue(s.norm, d) }
func (s *State) ReadyLowAdd(d *proc.Descriptor)  { s.enqueue(s.low, d) }
func (s *State) ReadyIdleAdd(d *proc.Descriptor) { s.enqueue(s.idle, d) }

func (s *State) enqueue(q *proc.Queue, d *proc.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.PushTail(d, &d.StatusLink)
}

// ReadyAdd implements proc.Scheduler by dispatching to the ready
// queue matching d.Priority, the single entry point the process
// module's Ready calls through.
func (s *State) ReadyAdd(d *proc.Descriptor) {
	s.mu.Lock()
	q := s.queueFor(d.Priority)
	s.mu.Unlock()
	s.enqueue(q, d)
}

// WaitAdd enqueues d on the wait queue, for descriptors blocked on
// external events (spec.md §3's "one wait queue for descriptors
// blocked on external events").
func (s *State) WaitAdd(d *proc.Descriptor) { s.enqueue(s.wait, d) }

// GetNext implements spec.md §4.C's get_next_process selection
// algorithm: prefer higher priority without starving a
// strictly-higher-priority descriptor that is still current.
func (s *State) GetNext() *proc.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getNextLocked()
}

func (s *State) getNextLocked() *proc.Descriptor {
	cur := s.current
	type step struct {
		q   *proc.Queue
		pty proc.Priority
	}
	for _, st := range []step{
		{s.kern, proc.Kern},
		{s.high, proc.High},
		{s.norm, proc.Norm},
		{s.low, proc.Low},
		{s.idle, proc.Idle},
	} {
		if h := st.q.Head(); h != nil {
			return h
		}
		if cur != nil && cur.Priority == st.pty {
			return cur
		}
	}
	return cur
}
