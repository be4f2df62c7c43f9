package vm

// invoke implements the Invoke opcode's frame-construction protocol
// (spec.md §4.5): resolve the pool entry at poolIndex to a function
// descriptor, snapshot the top arg_len u32 operands as arguments, push a
// new frame anchor (saved bp, return address), lay the arguments into the
// start of the new variable table, reserve the remainder of the table,
// and jump to the function's start address.
func (v *VM) invoke(poolIndex uint64) ExitStatus {
	descOffset, overflow := mulOverflowU64(poolIndex, poolEntrySize)
	if overflow {
		return ExitBytecodeAccessViolation
	}
	offset := PoolOffset + descOffset
	if offset < PoolOffset {
		return ExitBytecodeAccessViolation
	}

	if status := v.pp.jump(offset); status != ExitSuccess {
		return status
	}
	valueAddr, status := cursorNext[uint64](&v.pp)
	if status != ExitSuccess {
		return status
	}
	if status := v.pp.jump(valueAddr); status != ExitSuccess {
		return status
	}
	startAddr, status := cursorNext[uint64](&v.pp)
	if status != ExitSuccess {
		return status
	}
	varLen16, status := cursorNext[uint16](&v.pp)
	if status != ExitSuccess {
		return status
	}
	argLen8, status := cursorNext[uint8](&v.pp)
	if status != ExitSuccess {
		return status
	}

	varLen := uint64(varLen16)
	argLen := uint64(argLen8)

	if varLen < argLen || v.sp < argLen*4 {
		return ExitStackAccessViolation
	}

	args := make([]uint32, argLen)
	for i := uint64(0); i < argLen; i++ {
		addr := v.sp - (argLen-i)*4
		args[i] = decodeUnsigned[uint32](v.stack[addr : addr+4])
	}
	v.sp -= argLen * 4

	savedBp := v.bp
	retAddr := v.pc

	if status := stackPush[uint64](v, savedBp); status != ExitSuccess {
		return status
	}
	if status := stackPush[uint64](v, retAddr); status != ExitSuccess {
		return status
	}
	v.bp = v.sp

	for _, arg := range args {
		if status := stackPush[uint32](v, arg); status != ExitSuccess {
			return status
		}
	}

	newSp := v.bp + varLen*4
	if newSp > MaxStack {
		return ExitStackAccessViolation
	}
	v.sp = newSp

	if startAddr > v.img.len() {
		return ExitBytecodeAccessViolation
	}
	v.pc = startAddr
	return ExitSuccess
}

// ret implements the Ret opcode (spec.md §4.5): discard the current
// frame's variable table and any operand values above it, then pop the
// frame anchor to restore the caller's bp and program counter. Ret never
// leaves a value behind — calls are void.
func (v *VM) ret() ExitStatus {
	if v.sp < v.bp || v.bp < frameAnchorSize {
		return ExitStackAccessViolation
	}
	v.sp = v.bp

	retAddr := decodeUnsigned[uint64](v.stack[v.bp-8 : v.bp])
	savedBp := decodeUnsigned[uint64](v.stack[v.bp-16 : v.bp-8])

	if retAddr > v.img.len() {
		return ExitBytecodeAccessViolation
	}

	v.sp = v.bp - frameAnchorSize
	v.bp = savedBp
	v.pc = retAddr
	return ExitSuccess
}
