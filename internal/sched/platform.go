package sched

import (
	"sync"

	"kernel64/internal/proc"
)

// Platform is the context-replacement backend spec.md §9's
// polymorphism note calls for at this seam too: "model this as a
// single abstraction with two-or-more concrete providers selected at
// initialization." SwitchTo's steps 1-3 and 7 (install address-space
// root/stack-segment/stack-pointer, refill quantum) are mechanical
// and live in State itself; what differs between a real CPU and a
// hosted test run is how the *actual instruction stream* resumes on
// the incoming descriptor and suspends on the outgoing one. That is
// what Platform abstracts.
type Platform interface {
	// Bootstrap adopts the calling goroutine (or hardware thread) as
	// the given descriptor's initial execution context. Called once,
	// for the butler descriptor, since it has no Entry to launch.
	Bootstrap(d *proc.Descriptor)
	// Spawn starts d.Entry running on a fresh execution context (a
	// goroutine in the simulated backend) and returns once that
	// context exists, without necessarily having run yet.
	Spawn(d *proc.Descriptor)
	// Suspend blocks the calling context (which must be executing on
	// behalf of outgoing) until Resume(outgoing) is called elsewhere.
	Suspend(outgoing *proc.Descriptor)
	// Resume unblocks incoming's context, letting it continue from
	// wherever Suspend parked it (or starts it running, for a
	// context Spawn created but that has not run yet).
	Resume(incoming *proc.Descriptor)
}

// taskState is the simulated platform's per-descriptor bookkeeping:
// a condition variable used exactly like the teacher's SimpleChannel
// (src/mazboot/golang/main/goroutine.go) — "send" wakes the parked
// goroutine, "receive" parks it — except built on sync.Cond instead
// of a busy-wait spin loop, since this backend runs under the Go
// runtime's own scheduler rather than bare metal.
type taskState struct {
	mu      sync.Mutex
	cond    *sync.Cond
	runnable bool
	started  bool
}

func newTaskState() *taskState {
	ts := &taskState{}
	ts.cond = sync.NewCond(&ts.mu)
	return ts
}

func (ts *taskState) send() {
	ts.mu.Lock()
	ts.runnable = true
	ts.cond.Signal()
	ts.mu.Unlock()
}

func (ts *taskState) receive() {
	ts.mu.Lock()
	for !ts.runnable {
		ts.cond.Wait()
	}
	ts.runnable = false
	ts.mu.Unlock()
}

// SimPlatform runs every descriptor's Entry on its own goroutine,
// parking all but the "current" one on a taskState condition
// variable. It is the default, always-built provider every test in
// this repository exercises; no real register frame or stack pointer
// is ever touched; instead each descriptor's Go goroutine itself IS
// its suspended execution context; see descriptor.Frame for the
// separately-maintained byte-accurate bookkeeping this backend keeps
// alongside it purely for spec-layout fidelity.
type SimPlatform struct {
	mu    sync.Mutex
	tasks map[*proc.Descriptor]*taskState
}

// NewSimPlatform returns a Platform backed by goroutines, suitable
// for hosted tests and the cmd/kernelsim harness.
func NewSimPlatform() *SimPlatform {
	return &SimPlatform{tasks: make(map[*proc.Descriptor]*taskState)}
}

func (p *SimPlatform) stateFor(d *proc.Descriptor) *taskState {
	p.mu.Lock()
	defer p.mu.Unlock()
	ts, ok := p.tasks[d]
	if !ok {
		ts = newTaskState()
		p.tasks[d] = ts
	}
	return ts
}

// Bootstrap registers the calling goroutine as d's context. d is
// already executing (it is the caller), so there is nothing to wake;
// the first Suspend(d) parks it correctly since runnable starts
// false.
func (p *SimPlatform) Bootstrap(d *proc.Descriptor) {
	p.stateFor(d).started = true
}

// Spawn launches d.Entry on a new goroutine that immediately blocks
// until the scheduler resumes it, mirroring the teacher's
// createGoroutine + runtime.Gosched() pairing: the goroutine exists
// but does not run until explicitly scheduled.
func (p *SimPlatform) Spawn(d *proc.Descriptor) {
	ts := p.stateFor(d)
	ts.started = true
	go func() {
		ts.receive()
		if d.Entry != nil {
			d.Entry(d, d.Argv)
		}
		proc.Trampoline(d)
	}()
}

// Suspend parks the calling goroutine (running on behalf of outgoing)
// until a later Resume(outgoing).
func (p *SimPlatform) Suspend(outgoing *proc.Descriptor) {
	p.stateFor(outgoing).receive()
}

// Resume wakes incoming's goroutine.
func (p *SimPlatform) Resume(incoming *proc.Descriptor) {
	p.stateFor(incoming).send()
}
