package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestVM() *VM {
	img := make([]byte, HeaderSize)
	copy(img[:4], MagicNumber[:])
	return newVM(img)
}

func TestStackPushAndPopRoundTrip(t *testing.T) {
	v := newTestVM()
	require.Equal(t, ExitSuccess, stackPush[uint32](v, 0xDEADBEEF))
	require.Equal(t, ExitSuccess, stackPush[uint64](v, 0x1122334455667788))

	val64, status := stackPopUnsafe[uint64](v)
	require.Equal(t, ExitSuccess, status)
	require.Equal(t, uint64(0x1122334455667788), val64)

	val32, status := stackPopUnsafe[uint32](v)
	require.Equal(t, ExitSuccess, status)
	require.Equal(t, uint32(0xDEADBEEF), val32)
}

func TestStackPushFailsAtCapacity(t *testing.T) {
	v := newTestVM()
	v.sp = MaxStack - 2
	status := stackPush[uint32](v, 1)
	require.Equal(t, ExitStackOverflow, status)
}

func TestStackPopUnsafeFailsOnEmpty(t *testing.T) {
	v := newTestVM()
	_, status := stackPopUnsafe[uint32](v)
	require.Equal(t, ExitStackAccessViolation, status)
}

func TestStackPopSafeRefusesToCrossFrameAnchor(t *testing.T) {
	v := newTestVM()
	v.bp = 64
	v.sp = 64

	_, status := stackPopSafe[uint32](v)
	require.Equal(t, ExitStackAccessViolation, status)

	require.Equal(t, ExitSuccess, stackPush[uint32](v, 42))
	val, status := stackPopSafe[uint32](v)
	require.Equal(t, ExitSuccess, status)
	require.Equal(t, uint32(42), val)
}

func TestVarLoadStoreRoundTrip(t *testing.T) {
	v := newTestVM()
	v.bp = 32
	v.sp = 32 + 4*3 // three u32 variable slots reserved

	require.Equal(t, ExitSuccess, varStore[uint32](v, 0, 111))
	require.Equal(t, ExitSuccess, varStore[uint32](v, 1, 222))

	val, status := varLoad[uint32](v, 0)
	require.Equal(t, ExitSuccess, status)
	require.Equal(t, uint32(111), val)

	val, status = varLoad[uint32](v, 1)
	require.Equal(t, ExitSuccess, status)
	require.Equal(t, uint32(222), val)

	_, status = varLoad[uint32](v, 2)
	require.Equal(t, ExitSuccess, status)

	_, status = varLoad[uint32](v, 3)
	require.Equal(t, ExitStackAccessViolation, status, "slot 3 is past the reserved table")
}

func TestVarLoadStoreWideSlot(t *testing.T) {
	v := newTestVM()
	v.bp = 16
	v.sp = 16 + 4*2

	require.Equal(t, ExitSuccess, varStore[uint64](v, 0, 0xAABBCCDDEEFF0011))
	val, status := varLoad[uint64](v, 0)
	require.Equal(t, ExitSuccess, status)
	require.Equal(t, uint64(0xAABBCCDDEEFF0011), val)
}
