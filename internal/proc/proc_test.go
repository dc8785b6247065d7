package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kernel64/internal/mem"
)

// fakeScheduler is a minimal Scheduler double that records calls and
// lets tests drive Ready/Create/Trampoline without the real
// scheduler package, avoiding an import cycle in tests too.
type fakeScheduler struct {
	readyAdds []*Descriptor
	switches  []*Descriptor
	next      *Descriptor
	current   *Descriptor
}

func (f *fakeScheduler) SetCurrent(d *Descriptor) { f.current = d }
func (f *fakeScheduler) ReadyAdd(d *Descriptor)   { f.readyAdds = append(f.readyAdds, d) }
func (f *fakeScheduler) GetNext() *Descriptor     { return f.next }
func (f *fakeScheduler) SwitchTo(d *Descriptor, eoiFlag bool) {
	f.switches = append(f.switches, d)
	d.Status = Running
	f.current = d
	NoteCurrent(d)
}

func setup(t *testing.T) *fakeScheduler {
	t.Helper()
	f := &fakeScheduler{}
	Bind(f)
	Init()
	return f
}

func TestInitCreatesButlerAsCurrent(t *testing.T) {
	f := setup(t)
	butler := Current()
	require.NotNil(t, butler)
	assert.Equal(t, uint64(1), butler.PID)
	assert.Equal(t, "butler", butler.Name)
	assert.Equal(t, Kern, butler.Priority)
	assert.Equal(t, Running, butler.Status)
	assert.True(t, butler.StatusLink.IsSelfLooped())
	assert.Same(t, butler, f.current)
}

func TestReadyEnqueuesLowerPriority(t *testing.T) {
	setup(t)
	d := &Descriptor{PID: 2, Priority: Norm}
	d.StatusLink.SelfLoop()

	Ready(d)

	assert.Equal(t, Ready, d.Status)
}

func TestReadyYieldsToHigherPriority(t *testing.T) {
	f := setup(t)
	Current().Priority = Norm // butler normally runs at KERN, the ceiling; lower it so HIGH can preempt
	high := &Descriptor{PID: 2, Priority: High}
	high.StatusLink.SelfLoop()

	Ready(high)

	require.Len(t, f.switches, 1)
	assert.Same(t, high, f.switches[0])
	assert.Empty(t, f.readyAdds, "a synchronous yield must not also tail-enqueue")
}

func TestReadyIsIdempotentOnQueueMembership(t *testing.T) {
	setup(t)
	d := &Descriptor{PID: 2, Priority: Norm}
	d.StatusLink.SelfLoop()

	Ready(d)
	Ready(d)

	assert.True(t, d.StatusLink.IsSelfLooped(), "Ready must first unlink before re-adding")
}

func TestResetQuantumRefillsFromPriority(t *testing.T) {
	d := &Descriptor{Priority: High, Quantum: 1}
	ResetQuantum(d)
	assert.Equal(t, uint8(High), d.Quantum)
}

func TestSetPriorityCoercesInvalidToNorm(t *testing.T) {
	d := &Descriptor{Priority: High}
	SetPriority(d, Priority(42))
	assert.Equal(t, Norm, d.Priority)
}

func TestSetPriorityAcceptsValidValue(t *testing.T) {
	d := &Descriptor{Priority: Norm}
	SetPriority(d, Kern)
	assert.Equal(t, Kern, d.Priority)
}

func TestCreateAssignsPidsMonotonically(t *testing.T) {
	setup(t)
	arena := mem.NewArena(4 * mem.StackSize)

	a := Create(arena, "a", func(*Descriptor, []uint64) {}, nil, 0x08, 0x10, 0)
	b := Create(arena, "b", func(*Descriptor, []uint64) {}, nil, 0x08, 0x10, 0)

	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Greater(t, b.PID, a.PID)
}

func TestCreateSetsInitialFieldsAndReadies(t *testing.T) {
	f := setup(t)
	arena := mem.NewArena(4 * mem.StackSize)

	d := Create(arena, "worker", func(*Descriptor, []uint64) {}, []uint64{1, 2}, 0x08, 0x10, 0xcafe)

	require.NotNil(t, d)
	assert.Equal(t, Norm, d.Priority)
	assert.Equal(t, Ready, d.Status, "Ready runs as the final Create step")
	assert.Equal(t, uint64(0xcafe), d.SavedPageRoot)
	assert.Equal(t, resumeTargetSentinel, d.Frame.Resume)
	assert.Contains(t, f.readyAdds, d)
}

func TestCreateTruncatesLongName(t *testing.T) {
	setup(t)
	arena := mem.NewArena(mem.StackSize)

	long := "this-name-is-far-longer-than-name-len-allows"
	d := Create(arena, long, func(*Descriptor, []uint64) {}, nil, 0, 0, 0)

	require.NotNil(t, d)
	assert.LessOrEqual(t, len(d.Name), NameLen-1)
	assert.Equal(t, long[:NameLen-1], d.Name)
}

func TestCreateReturnsNilOnStackExhaustion(t *testing.T) {
	setup(t)
	arena := mem.NewArena(mem.StackSize / 2) // too small for one stack

	d := Create(arena, "x", func(*Descriptor, []uint64) {}, nil, 0, 0, 0)

	assert.Nil(t, d)
}

func TestTrampolineMarksEndingAndUnlinksThenSwitches(t *testing.T) {
	f := setup(t)
	arena := mem.NewArena(mem.StackSize)
	d := Create(arena, "task", func(*Descriptor, []uint64) {}, nil, 0, 0, 0)
	require.NotNil(t, d)

	idle := &Descriptor{PID: 99, Priority: Idle}
	idle.StatusLink.SelfLoop()
	f.next = idle

	Trampoline(d)

	assert.Equal(t, Ending, d.Status)
	assert.True(t, d.StatusLink.IsSelfLooped())
	assert.Contains(t, f.switches, idle)
}

func TestReapFreesEndingDescriptorsFromRegistry(t *testing.T) {
	setup(t)
	arena := mem.NewArena(2 * mem.StackSize)
	d := Create(arena, "dying", func(*Descriptor, []uint64) {}, nil, 0, 0, 0)
	require.NotNil(t, d)
	lenBefore := registry.Len()

	d.Status = Ending
	n := Reap(arena)

	assert.Equal(t, 1, n)
	assert.Equal(t, lenBefore-1, registry.Len())

	reused := Create(arena, "reborn", func(*Descriptor, []uint64) {}, nil, 0, 0, 0)
	require.NotNil(t, reused, "the freed stack must be reusable")
}

func TestReapLeavesRunningDescriptorsAlone(t *testing.T) {
	setup(t)
	arena := mem.NewArena(mem.StackSize)
	before := registry.Len()

	n := Reap(arena)

	assert.Equal(t, 0, n)
	assert.Equal(t, before, registry.Len())
}
