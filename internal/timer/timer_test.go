package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kernel64/internal/mem"
	"kernel64/internal/pic"
	"kernel64/internal/proc"
	"kernel64/internal/sched"
)

func newTestHandler(t *testing.T) (*Handler, *sched.State, *sched.SimPlatform, *proc.Descriptor) {
	t.Helper()
	bus := pic.NewSimulatedBus()
	c := pic.NewLegacy(bus)
	arena := mem.NewArena(8 * mem.StackSize)
	platform := sched.NewSimPlatform()
	s := sched.New(arena, c, platform, 0x20, 0x28)
	_, butler := proc.Init()
	s.SetCurrent(butler)
	platform.Bootstrap(butler)
	s.Enable()

	h := New(s, bus)
	h.Install()
	return h, s, platform, butler
}

// pitWrite is one Outb call recorded by pitRecorder.
type pitWrite struct {
	port uint16
	val  byte
}

// pitRecorder is a PortBus that records every Outb in order.
type pitRecorder struct{ writes []pitWrite }

func (r *pitRecorder) Outb(port uint16, val byte) { r.writes = append(r.writes, pitWrite{port, val}) }
func (r *pitRecorder) Inb(uint16) byte            { return 0 }

func TestProgramWritesModeByteAndDivisor(t *testing.T) {
	rec := &pitRecorder{}
	Program(rec, DesignFrequency)
	// 1193182/500 = 2386.36, rounded to 2386 = 0x0952, low byte first.
	assert.Equal(t, []pitWrite{
		{CommandPort, 0x36},
		{DataPort0, 0x52},
		{DataPort0, 0x09},
	}, rec.writes)

	// The simulated bus only models the PIC chips, not the PIT, so
	// Program's writes land on ports the bus does not interpret;
	// Program must still not panic on it.
	bus := pic.NewSimulatedBus()
	assert.NotPanics(t, func() { Program(bus, DesignFrequency) })
}

func TestHandleTickIncrementsGlobalCounter(t *testing.T) {
	h, s, _, _ := newTestHandler(t)
	before := s.Ticks()

	h.HandleTick()

	assert.Equal(t, before+1, s.Ticks())
}

func TestHandleTickDecrementsQuantumWithoutSwitchingWhileNonZero(t *testing.T) {
	h, s, _, butler := newTestHandler(t)
	proc.ResetQuantum(butler)
	before := butler.Quantum

	h.HandleTick()

	assert.Equal(t, before-1, butler.Quantum)
	assert.Same(t, butler, s.Current(), "must not switch while quantum remains")
}

func TestHandleTickIncrementsTotalQuantumEveryTick(t *testing.T) {
	h, _, _, butler := newTestHandler(t)
	before := butler.TotalQuantum

	h.HandleTick()

	assert.Equal(t, before+1, butler.TotalQuantum)
}

func TestHandleTickOnEmptySystemLeavesCurrentUnchanged(t *testing.T) {
	h, s, _, butler := newTestHandler(t)

	for i := 0; i < int(proc.Kern)+5; i++ {
		h.HandleTick()
	}

	assert.Same(t, butler, s.Current())
	assert.Equal(t, uint64(int(proc.Kern)+5), butler.TotalQuantum)
}

func TestHandleTickSwitchesWhenQuantumExpiresAndAnotherIsReady(t *testing.T) {
	h, s, platform, _ := newTestHandler(t)
	arena := mem.NewArena(2 * mem.StackSize)

	// A KERN-priority current (the butler) outranks every queue and
	// is never preempted by get_next_process, per spec.md §4.C step
	// 2. Use a NORM runner instead, so the NORM-queued worker below
	// is eligible to win selection.
	runner := &proc.Descriptor{PID: 50, Priority: proc.Norm, Status: proc.Running, Quantum: 1}
	runner.StatusLink.SelfLoop()
	platform.Bootstrap(runner)
	s.SetCurrent(runner)

	ranCh := make(chan struct{})
	worker := proc.Create(arena, "worker", func(self *proc.Descriptor, argv []uint64) {
		close(ranCh)
	}, nil, 0, 0, 0)
	require.NotNil(t, worker)
	platform.Spawn(worker) // Create already readied worker onto the norm queue

	go h.HandleTick()

	select {
	case <-ranCh:
	case <-time.After(time.Second):
		t.Fatal("ready worker never ran after quantum expiry")
	}
}
