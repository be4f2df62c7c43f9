package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArrayHeapAllocLoadStoreRoundTrip(t *testing.T) {
	h := newArrayHeap()

	addr, status := h.alloc(4, 3) // 3 u32 elements
	require.Equal(t, ExitSuccess, status)

	size, ok := h.sizeInBytes(addr)
	require.True(t, ok)
	require.Equal(t, uint64(12), size)

	require.Equal(t, ExitSuccess, store[uint32](h, addr, 0, 111))
	require.Equal(t, ExitSuccess, store[uint32](h, addr, 2, 333))

	v, status := load[uint32](h, addr, 0)
	require.Equal(t, ExitSuccess, status)
	require.Equal(t, uint32(111), v)

	v, status = load[uint32](h, addr, 2)
	require.Equal(t, ExitSuccess, status)
	require.Equal(t, uint32(333), v)
}

func TestArrayHeapLoadOutOfBounds(t *testing.T) {
	h := newArrayHeap()
	addr, _ := h.alloc(4, 2)

	_, status := load[uint32](h, addr, 2)
	require.Equal(t, ExitArrayAccessViolation, status)
}

func TestArrayHeapUnknownAddress(t *testing.T) {
	h := newArrayHeap()

	_, status := load[uint32](h, 999, 0)
	require.Equal(t, ExitArrayAccessViolation, status)

	status = store[uint32](h, 999, 0, 1)
	require.Equal(t, ExitArrayAccessViolation, status)

	status = h.drop(999)
	require.Equal(t, ExitArrayAccessViolation, status)
}

func TestArrayHeapDropThenUnknown(t *testing.T) {
	h := newArrayHeap()
	addr, _ := h.alloc(1, 8)

	require.Equal(t, ExitSuccess, h.drop(addr))
	_, status := load[uint8](h, addr, 0)
	require.Equal(t, ExitArrayAccessViolation, status, "a dropped address is unknown again")
}

func TestArrayHeapDistinctAddressesDoNotAlias(t *testing.T) {
	h := newArrayHeap()
	a1, _ := h.alloc(1, 4)
	a2, _ := h.alloc(1, 4)
	require.NotEqual(t, a1, a2)

	require.Equal(t, ExitSuccess, store[uint8](h, a1, 0, 9))
	v, _ := load[uint8](h, a2, 0)
	require.Equal(t, uint8(0), v)
}

func TestMulOverflowU64(t *testing.T) {
	_, overflow := mulOverflowU64(0, 5)
	require.False(t, overflow)

	_, overflow = mulOverflowU64(1<<63, 2)
	require.True(t, overflow)

	product, overflow := mulOverflowU64(6, 7)
	require.False(t, overflow)
	require.Equal(t, uint64(42), product)
}
