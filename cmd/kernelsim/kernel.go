package main

import (
	"kernel64/internal/console"
	"kernel64/internal/mem"
	"kernel64/internal/pic"
	"kernel64/internal/proc"
	"kernel64/internal/sched"
	"kernel64/internal/timer"
)

// masterVectorBase and slaveVectorBase are the vector offsets
// kernelsim programs the simulated PICs to, spec.md §6's "typical
// remap to 0x20/0x28 to clear of the CPU exception range".
const (
	masterVectorBase = 0x20
	slaveVectorBase  = 0x28

	// arenaStacks sizes the process-stack arena generously enough for
	// every subcommand's workload plus the scheduler's own handler
	// stack; internal/mem.Arena rejects allocation past this.
	arenaStacks = 64
)

// kernel bundles the wiring every subcommand needs: the simulated
// interrupt controller, the scheduler, the timer handler, and the
// bootstrap descriptor. Grounded on internal/sched and internal/timer's
// own test helpers (newTestState/newTestHandler), promoted here into
// a reusable harness for the CLI.
type kernel struct {
	bus        *pic.SimulatedBus
	controller pic.Controller
	arena      *mem.Arena
	platform   *sched.SimPlatform
	state      *sched.State
	handler    *timer.Handler
	registry   *proc.Registry
	butler     *proc.Descriptor
	log        console.Logger
	ticks      uint64
}

// reapInterval paces proc.Reap calls out of the idle loop below: a
// small constant rather than every tick, so reaping never competes
// for CPU with real work (DESIGN.md's resolution of spec.md §9's
// end-of-process resource-leak open question).
const reapInterval = 16

func newKernel(flags *globalFlags) *kernel {
	console.Disabled = flags.quiet
	log := console.Default(flags.debug)

	bus := pic.NewSimulatedBus()
	controller := pic.NewLegacy(bus)
	arena := mem.NewArena(arenaStacks * mem.StackSize)
	platform := sched.NewSimPlatform()
	state := sched.New(arena, controller, platform, masterVectorBase, slaveVectorBase)
	state.SetLogger(log)

	registry, butler := proc.Init()
	state.SetCurrent(butler)
	platform.Bootstrap(butler)
	state.Enable()

	h := timer.New(state, bus)
	h.Install()

	return &kernel{
		bus:        bus,
		controller: controller,
		arena:      arena,
		platform:   platform,
		state:      state,
		handler:    h,
		registry:   registry,
		butler:     butler,
		log:        log,
	}
}

// spawn creates a descriptor at priority that runs fn once scheduled,
// readies it onto the matching queue, and starts its simulated
// execution context.
func (k *kernel) spawn(name string, priority proc.Priority, fn proc.EntryFunc) *proc.Descriptor {
	d := proc.Create(k.arena, name, fn, nil, 0, 0, 0)
	if d == nil {
		return nil
	}
	// Spawn d's execution context before any re-ready that might
	// immediately switch to it (spec.md §8 scenario 2's preemption
	// path): the goroutine must already exist to be resumed into.
	k.platform.Spawn(d)

	// Create always readies at NORM; re-ready once priority is
	// corrected so d lands in the queue matching its real priority,
	// or switches to it immediately if it now outranks current.
	proc.SetPriority(d, priority)
	proc.Ready(d)
	return d
}

// tick drives n timer interrupts in sequence, matching spec.md §4.D's
// handler being invoked once per hardware timer period. Whenever the
// bootstrap descriptor comes up current — meaning it has nothing
// better to do — every reapInterval-th tick also sweeps ended
// descriptors, the "bootstrap descriptor's own idle loop" spec.md §9
// suggests as the reaper's home.
func (k *kernel) tick(n int) {
	for i := 0; i < n; i++ {
		k.handler.HandleTick()
		k.ticks++
		if k.state.Current() == k.butler && k.ticks%reapInterval == 0 {
			proc.Reap(k.arena)
		}
	}
}

// start hands the CPU from butler to whatever workload was spawned
// first, using only the public primitives the core already exposes:
// demoting butler below every workload priority and resetting its
// quantum to match means the very next tick's get_next_process call
// sees a non-KERN current whose quantum is already exhausted, so it
// picks the highest-priority ready workload and switch_to's into it
// — the same way a real kernel's boot thread would step aside for
// its first real task once initialization is complete. A KERN
// current is never preempted (spec.md §4.C step 2), so without this
// no workload would ever run.
//
// start blocks while the workload runs: the call it makes to
// HandleTick parks the calling goroutine as butler's context,
// exactly like any other descriptor switched out from under its own
// call stack. Control returns once something switches back into
// butler — either the workload voluntarily creating a KERN-priority
// descriptor (never, in these scenarios) or, more commonly, a
// descriptor ending while no other descriptor is ready at or above
// its own priority, which proc.Trampoline's butler-fallback path
// turns into a switch to butler (see internal/proc's Trampoline doc
// comment). Lower-priority descriptors still ready at that point are
// not run: in the preempt workload, B ending returns control here
// with A still READY.
func (k *kernel) start() {
	proc.SetPriority(k.butler, proc.Idle)
	proc.ResetQuantum(k.butler)
	k.tick(1)
}
