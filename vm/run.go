package vm

import "fmt"

// Launch parses an image, resolves its entry point, and runs it to
// completion. It is the one public entry point into the interpreter
// (spec.md §6) — every other exported symbol in this package exists to
// configure a run (Option) or interpret its result (ExitStatus).
//
// Launch panics if img is shorter than HeaderSize or its magic number
// does not match MagicNumber: both are preconditions of a well-formed
// image, not run-time faults the interpreter can report through
// ExitStatus, mirroring the teacher's own hard failure on a malformed
// header.
func Launch(img []byte, opts ...Option) ExitStatus {
	if uint64(len(img)) < HeaderSize {
		panic("stackvm: image shorter than header size")
	}
	if [4]byte(img[:4]) != MagicNumber {
		panic("stackvm: bad magic number")
	}

	v := newVM(img, opts...)
	defer v.stdout.Flush()

	status := v.run()
	v.tracer.exit(status)
	return status
}

// run resolves the entry point, synthesizes the entry frame, and drives
// the fetch-dispatch loop until the VM halts. A recover here is a
// backstop against a genuine interpreter bug (an out-of-bounds slice
// index the bound checks above should have already caught), not a
// substitute for the ExitStatus protocol — it surfaces as ExitUnknown
// rather than crashing the embedder.
func (v *VM) run() (status ExitStatus) {
	defer func() {
		if r := recover(); r != nil {
			status = ExitUnknown
			v.status = ExitUnknown
			fmt.Fprintf(v.stdout, "stackvm: internal fault: %v\n", r)
		}
	}()

	entryPC, status := v.resolveEntry()
	if status != ExitSuccess {
		return status
	}

	v.pc = entryPC
	v.bp = 0
	v.sp = 0
	if status := stackPush[uint64](v, 0); status != ExitSuccess {
		return status
	}
	if status := stackPush[uint64](v, v.img.len()-1); status != ExitSuccess {
		return status
	}

	for !v.halted {
		v.step()
	}
	return v.status
}

// resolveEntry follows the two-level indirection spec.md §9 reserves for
// pool slot 0: the slot holds an offset into the image, and the u64 at
// that offset (not an 11-byte function descriptor) is the entry point's
// program counter.
func (v *VM) resolveEntry() (uint64, ExitStatus) {
	pp := cursor{img: v.img, pos: PoolOffset}
	valueAddr, status := cursorNext[uint64](&pp)
	if status != ExitSuccess {
		return 0, status
	}
	if status := pp.jump(valueAddr); status != ExitSuccess {
		return 0, status
	}
	entryPC, status := cursorNext[uint64](&pp)
	if status != ExitSuccess {
		return 0, status
	}
	if entryPC >= v.img.len() {
		return 0, ExitBytecodeAccessViolation
	}
	return entryPC, ExitSuccess
}
