package vm

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// tracer renders a colorized per-instruction trace, purely a debugging aid
// (spec.md §1: never part of the semantic contract). Enabled only via
// WithTrace; a nil *tracer on the VM means tracing is off, and every method
// here returns immediately on a nil receiver.
type tracer struct {
	w io.Writer

	opcode *color.Color
	stack  *color.Color
	anno   *color.Color
	ok     *color.Color
	failed *color.Color
}

func newTracer(w io.Writer) *tracer {
	return &tracer{
		w:      w,
		opcode: color.New(color.FgBlue),
		stack:  color.New(color.FgHiBlack),
		anno:   color.New(color.FgHiGreen, color.Faint),
		ok:     color.New(color.BgHiBlack),
		failed: color.New(color.BgRed),
	}
}

func (t *tracer) fetch(op Opcode, pc, sp, bp register) {
	if t == nil {
		return
	}
	t.opcode.Fprintln(t.w, fmt.Sprintf("%s (0x%02x at 0x%x)", op, byte(op), pc))
	t.stack.Fprintln(t.w, fmt.Sprintf("sp=0x%x bp=0x%x", sp, bp))
}

func (t *tracer) invoke(poolIndex, startAddr, retAddr uint64) {
	if t == nil {
		return
	}
	t.anno.Fprintln(t.w, fmt.Sprintf(
		"[pool index 0x%x / start at 0x%x / return to 0x%x]",
		poolIndex, startAddr, retAddr))
}

func (t *tracer) ret(retAddr uint64, popped uint64) {
	if t == nil {
		return
	}
	t.anno.Fprintln(t.w, fmt.Sprintf("[return to 0x%x / pop %d bytes / return void]", retAddr, popped))
}

func (t *tracer) exit(status ExitStatus) {
	if t == nil {
		return
	}
	msg := fmt.Sprintf("exit status 0x%x (%s)", uint32(status), status)
	if status == ExitSuccess {
		t.ok.Fprintln(t.w, msg)
	} else {
		t.failed.Fprintln(t.w, msg)
	}
}
