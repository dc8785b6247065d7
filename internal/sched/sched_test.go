package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kernel64/internal/mem"
	"kernel64/internal/pic"
	"kernel64/internal/proc"
)

func newTestState(t *testing.T) (*State, *pic.SimulatedBus) {
	t.Helper()
	bus := pic.NewSimulatedBus()
	c := pic.NewLegacy(bus)
	arena := mem.NewArena(8 * mem.StackSize)
	s := New(arena, c, NewSimPlatform(), 0x20, 0x28)
	_, butler := proc.Init()
	s.SetCurrent(butler)
	s.platform.(*SimPlatform).Bootstrap(butler)
	s.Enable()
	return s, bus
}

func TestGetNextPrefersKernQueueOverCurrent(t *testing.T) {
	s, _ := newTestState(t)
	kernTask := &proc.Descriptor{PID: 2, Priority: proc.Kern}
	kernTask.StatusLink.SelfLoop()
	s.ReadyKernAdd(kernTask)

	assert.Same(t, kernTask, s.GetNext())
}

func TestGetNextFallsBackToCurrentWhenMatchingQueueEmpty(t *testing.T) {
	s, _ := newTestState(t)
	// current is the KERN-priority butler, no queues populated.
	assert.Same(t, s.Current(), s.GetNext())
}

func TestGetNextPrefersHighOverNormWhenCurrentIsNorm(t *testing.T) {
	s, _ := newTestState(t)
	s.current = &proc.Descriptor{PID: 2, Priority: proc.Norm}

	high := &proc.Descriptor{PID: 3, Priority: proc.High}
	high.StatusLink.SelfLoop()
	s.ReadyHighAdd(high)

	assert.Same(t, high, s.GetNext())
}

func TestGetNextReturnsCurrentWhenItsOwnQueueStepIsReached(t *testing.T) {
	s, _ := newTestState(t)
	norm := &proc.Descriptor{PID: 2, Priority: proc.Norm}
	s.current = norm

	assert.Same(t, norm, s.GetNext())
}

func TestReadyAddDispatchesToMatchingQueue(t *testing.T) {
	s, _ := newTestState(t)
	d := &proc.Descriptor{PID: 2, Priority: proc.Low}
	d.StatusLink.SelfLoop()

	s.ReadyAdd(d)

	assert.Same(t, d, s.low.Head())
}

func TestSwitchToRefillsQuantumAndInstallsCurrent(t *testing.T) {
	s, _ := newTestState(t)
	arena := mem.NewArena(2 * mem.StackSize)

	var ran bool
	done := make(chan struct{})
	d := proc.Create(arena, "worker", func(self *proc.Descriptor, argv []uint64) {
		ran = true
		close(done)
	}, nil, 0, 0, 0)
	require.NotNil(t, d)
	s.platform.(*SimPlatform).Spawn(d)

	// SwitchTo suspends the calling context until it is scheduled
	// again, exactly like a real preempted task; run it on a goroutine
	// standing in for butler's own execution thread so the test
	// itself is free to observe the outcome.
	go s.SwitchTo(d, false)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("spawned descriptor never ran")
	}
	assert.True(t, ran)
	assert.Equal(t, uint8(proc.Norm), d.Quantum)
}

func TestSwitchToWithEOIFlagSetDoesNotPanic(t *testing.T) {
	s, _ := newTestState(t)

	idle := &proc.Descriptor{PID: 7, Priority: proc.Idle}
	idle.StatusLink.SelfLoop()
	s.platform.(*SimPlatform).Bootstrap(idle)

	panicked := make(chan any, 1)
	go func() {
		defer func() { panicked <- recover() }()
		s.SwitchTo(idle, true)
	}()

	select {
	case r := <-panicked:
		assert.Nil(t, r, "switching with eoiFlag set must not panic")
	case <-time.After(200 * time.Millisecond):
		// SwitchTo suspends the outgoing (butler) context and never
		// returns here, same as on real hardware; the absence of a
		// panic within the window is the pass condition.
	}
}
