package vm

import (
	"bufio"
	"io"
	"os"
)

// frameAnchorSize is the width, in bytes, of the saved-bp/return-address
// pair every call frame carries at [bp-16, bp) (spec.md §3, "Frame").
const frameAnchorSize = 16

// VM is one interpreter instance: a program counter, a byte-granular
// operand stack with base/stack pointers, a pool cursor, an array heap,
// and the terminal exit status once the run ends. A VM is single-use —
// construct a new one per Launch call, mirroring the teacher VM's
// one-shot NewVirtualMachine/RunProgram pairing.
type VM struct {
	img *image

	pc register // program counter: byte offset into img
	pp cursor   // pool cursor

	bp register // base pointer: start of the current frame's variable table
	sp register // stack pointer: next free byte in the operand stack

	stack [MaxStack]byte
	heap  *arrayHeap

	status ExitStatus
	halted bool

	stdin  *bufio.Reader
	stdout *bufio.Writer

	tracer *tracer
}

// register mirrors the teacher's register type alias: a plain numeric
// value with no signedness or float interpretation baked in.
type register = uint64

// Option configures a VM at construction time, the same shape as the
// teacher's debug bool threaded through NewVirtualMachine.
type Option func(*VM)

// WithTrace enables the colorized per-opcode tracer (spec.md §1: the
// interpreter MAY emit a trace; it is never part of the semantic
// contract). Trace lines are written to w.
func WithTrace(w io.Writer) Option {
	return func(v *VM) {
		v.tracer = newTracer(w)
	}
}

// WithStdin overrides the reader backing syscall 0x00 (read up to 4 bytes
// from fd 0). Defaults to os.Stdin.
func WithStdin(r io.Reader) Option {
	return func(v *VM) {
		v.stdin = bufio.NewReader(r)
	}
}

// WithStdout overrides the writer backing syscall 0x01 (write an array's
// payload to fd 1). Defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(v *VM) {
		v.stdout = bufio.NewWriter(w)
	}
}

func newVM(img []byte, opts ...Option) *VM {
	parsed := newImage(img)
	v := &VM{
		img:    parsed,
		pp:     cursor{img: parsed},
		heap:   newArrayHeap(),
		stdin:  bufio.NewReader(os.Stdin),
		stdout: bufio.NewWriter(os.Stdout),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// fail records a terminal status and stops the loop, mirroring the
// teacher's pattern of setting vm.errcode and returning immediately — no
// opcode handler attempts to continue after this.
func (v *VM) fail(status ExitStatus) {
	v.status = status
	v.halted = true
}
