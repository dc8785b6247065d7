package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocReturnsDistinctRegions(t *testing.T) {
	a := NewArena(4096)

	x := a.Alloc(64)
	y := a.Alloc(64)
	require.True(t, x.Valid())
	require.True(t, y.Valid())

	xb, yb := x.Bytes(), y.Bytes()
	xb[0] = 0xAA
	yb[0] = 0xBB
	assert.Equal(t, byte(0xAA), xb[0])
	assert.Equal(t, byte(0xBB), yb[0])
}

func TestAllocExhaustionReturnsNull(t *testing.T) {
	a := NewArena(128)
	first := a.Alloc(128)
	require.True(t, first.Valid())

	second := a.Alloc(1)
	assert.False(t, second.Valid())
}

func TestFreeCoalescesAndAllowsReuse(t *testing.T) {
	a := NewArena(256)
	x := a.Alloc(64)
	y := a.Alloc(64)
	require.True(t, x.Valid())
	require.True(t, y.Valid())

	a.Free(x)
	a.Free(y)

	big := a.Alloc(200)
	assert.True(t, big.Valid(), "coalesced free space should satisfy a larger allocation")
}

func TestFreeOfNullAddrIsNoop(t *testing.T) {
	a := NewArena(64)
	assert.NotPanics(t, func() { a.Free(Addr{}) })
}

func TestAllocStackReturnsFixedSize(t *testing.T) {
	a := NewArena(StackSize * 2)
	s := a.AllocStack()
	require.True(t, s.Valid())
	assert.Len(t, s.Bytes(), StackSize)
}
