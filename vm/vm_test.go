package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewVMDefaultsAreZeroed(t *testing.T) {
	v := newTestVM()
	require.Equal(t, uint64(0), v.pc)
	require.Equal(t, uint64(0), v.bp)
	require.Equal(t, uint64(0), v.sp)
	require.False(t, v.halted)
	require.Equal(t, ExitSuccess, v.status)
	require.Nil(t, v.tracer)
}

func TestWithStdinAndStdoutOverrideDefaults(t *testing.T) {
	var out bytes.Buffer
	img := make([]byte, HeaderSize)
	copy(img[:4], MagicNumber[:])

	v := newVM(img, WithStdin(bytes.NewReader([]byte{9})), WithStdout(&out))
	require.NotNil(t, v.stdin)
	require.NotNil(t, v.stdout)

	b, err := v.stdin.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(9), b)

	_, err = v.stdout.WriteString("x")
	require.NoError(t, err)
	require.NoError(t, v.stdout.Flush())
	require.Equal(t, "x", out.String())
}

func TestWithTraceInstallsATracer(t *testing.T) {
	var out bytes.Buffer
	img := make([]byte, HeaderSize)
	copy(img[:4], MagicNumber[:])

	v := newVM(img, WithTrace(&out))
	require.NotNil(t, v.tracer)
}

func TestFailRecordsStatusAndHalts(t *testing.T) {
	v := newTestVM()
	v.fail(ExitDivideByZero)
	require.True(t, v.halted)
	require.Equal(t, ExitDivideByZero, v.status)
}
