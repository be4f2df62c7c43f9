package vm

// stackPush writes v at sp and advances sp by sizeof(T), failing with
// ExitStackOverflow if that would run past MaxStack (spec.md §4.2).
func stackPush[T unsignedWidth](v *VM, val T) ExitStatus {
	width := widthOf[T]()
	if v.sp+width > MaxStack {
		return ExitStackOverflow
	}
	encodeUnsigned(v.stack[v.sp:v.sp+width], val)
	v.sp += width
	return ExitSuccess
}

// stackPopSafe pops a value of type T, refusing to read below the current
// frame's base pointer — the variable table and operand stack of this
// frame are fair game, the anchor below bp and the caller's frame are
// not. This is the form every ordinary opcode uses.
func stackPopSafe[T unsignedWidth](v *VM) (T, ExitStatus) {
	width := widthOf[T]()
	var zero T
	if v.sp < v.bp+width {
		return zero, ExitStackAccessViolation
	}
	v.sp -= width
	return decodeUnsigned[T](v.stack[v.sp : v.sp+width]), ExitSuccess
}

// stackPopUnsafe pops a value of type T checking only that the stack is
// non-empty, not that it stays above the current frame's bp, so it can
// reach into the anchor region below bp. No opcode handler calls it: ret
// reads the anchor directly from the stack buffer.
func stackPopUnsafe[T unsignedWidth](v *VM) (T, ExitStatus) {
	width := widthOf[T]()
	var zero T
	if v.sp < width {
		return zero, ExitStackAccessViolation
	}
	v.sp -= width
	return decodeUnsigned[T](v.stack[v.sp : v.sp+width]), ExitSuccess
}

// stackTopSafe reads the top value of type T without advancing sp, under
// the same lower bound as stackPopSafe.
func stackTopSafe[T unsignedWidth](v *VM) (T, ExitStatus) {
	width := widthOf[T]()
	var zero T
	if v.sp < v.bp+width {
		return zero, ExitStackAccessViolation
	}
	return decodeUnsigned[T](v.stack[v.sp-width : v.sp]), ExitSuccess
}

// varLoad reads variable-table slot i (spec.md §4.4): the table lives at
// [bp, bp+4*var_len), so slot i sits at bp+4*i regardless of T's width —
// a u64 slot just occupies two u32-sized slots' worth of bytes. The only
// runtime-checkable bound is that the read must not run past the current
// stack pointer; var_len itself isn't retained once Invoke finishes.
func varLoad[T unsignedWidth](v *VM, i uint16) (T, ExitStatus) {
	width := widthOf[T]()
	var zero T
	addr := v.bp + uint64(i)*4
	if addr+width > v.sp {
		return zero, ExitStackAccessViolation
	}
	return decodeUnsigned[T](v.stack[addr : addr+width]), ExitSuccess
}

// varStore writes variable-table slot i with the same bound check as
// varLoad.
func varStore[T unsignedWidth](v *VM, i uint16, val T) ExitStatus {
	width := widthOf[T]()
	addr := v.bp + uint64(i)*4
	if addr+width > v.sp {
		return ExitStackAccessViolation
	}
	encodeUnsigned(v.stack[addr:addr+width], val)
	return ExitSuccess
}
