package vm

import (
	"encoding/binary"
	"io"
	"math/bits"
)

// fetch reads a value of width sizeof(T) at the program counter and
// advances past it, the instruction-stream counterpart to cursorNext
// (which drives pp, the pool cursor).
func fetch[T unsignedWidth](v *VM) (T, ExitStatus) {
	c := cursor{img: v.img, pos: v.pc}
	val, status := cursorNext[T](&c)
	v.pc = c.pos
	return val, status
}

// step fetches and executes a single instruction, leaving the VM halted
// with a non-success status on any failure. Every opcode handler below
// returns an ExitStatus rather than signalling success/failure out of
// band, mirroring the teacher's execNextInstruction dispatch switch.
func (v *VM) step() {
	pc := v.pc
	opByte, status := fetch[uint8](v)
	if status != ExitSuccess {
		v.fail(status)
		return
	}
	op := Opcode(opByte)
	v.tracer.fetch(op, pc, v.sp, v.bp)

	var result ExitStatus

	switch op {
	case Nop:
		result = ExitSuccess
	case Exit:
		v.fail(ExitSuccess)
		return
	case Call:
		id, s := fetch[uint8](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = v.execCall(id)

	case Invoke:
		poolIndex, s := fetch[uint64](v)
		if s != ExitSuccess {
			result = s
			break
		}
		retAddrBefore := v.pc
		result = v.invoke(poolIndex)
		if result == ExitSuccess {
			v.tracer.invoke(poolIndex, v.pc, retAddrBefore)
		}
	case Ret:
		poppedBefore := v.sp - v.bp
		result = v.ret()
		if result == ExitSuccess {
			v.tracer.ret(v.pc, poppedBefore)
		}

	case BPush:
		imm, s := fetch[uint8](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = stackPush[uint32](v, uint32(imm))
	case SPush:
		imm, s := fetch[uint16](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = stackPush[uint32](v, uint32(imm))
	case IPush:
		imm, s := fetch[uint32](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = stackPush[uint32](v, imm)
	case LPush:
		imm, s := fetch[uint64](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = stackPush[uint64](v, imm)

	case Dup:
		val, s := stackTopSafe[uint32](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = stackPush[uint32](v, val)
	case Dup2:
		val, s := stackTopSafe[uint64](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = stackPush[uint64](v, val)
	case Pop:
		_, result = stackPopSafe[uint32](v)
	case Pop2:
		_, result = stackPopSafe[uint64](v)

	case Load:
		idx, s := fetch[uint16](v)
		if s != ExitSuccess {
			result = s
			break
		}
		val, s := varLoad[uint32](v, idx)
		if s != ExitSuccess {
			result = s
			break
		}
		result = stackPush[uint32](v, val)
	case Load2:
		idx, s := fetch[uint16](v)
		if s != ExitSuccess {
			result = s
			break
		}
		val, s := varLoad[uint64](v, idx)
		if s != ExitSuccess {
			result = s
			break
		}
		result = stackPush[uint64](v, val)
	case Store:
		idx, s := fetch[uint16](v)
		if s != ExitSuccess {
			result = s
			break
		}
		val, s := stackPopSafe[uint32](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = varStore[uint32](v, idx, val)
	case Store2:
		idx, s := fetch[uint16](v)
		if s != ExitSuccess {
			result = s
			break
		}
		val, s := stackPopSafe[uint64](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = varStore[uint64](v, idx, val)

	case IAdd:
		result = arithBinary(v, checkedAddU32)
	case ISub:
		result = arithBinary(v, checkedSubU32)
	case IMul:
		result = arithBinary(v, checkedMulU32)
	case IDiv:
		result = divBinary[uint32](v)
	case LAdd:
		result = arithBinary(v, checkedAddU64)
	case LSub:
		result = arithBinary(v, checkedSubU64)
	case LMul:
		result = arithBinary(v, checkedMulU64)
	case LDiv:
		result = divBinary[uint64](v)

	case IEq:
		result = compareBinary(v, func(a, b uint32) bool { return a == b })
	case LEq:
		result = compareBinary(v, func(a, b uint64) bool { return a == b })
	case IOrd:
		result = compareBinary(v, func(a, b uint32) bool { return a < b })
	case LOrd:
		result = compareBinary(v, func(a, b uint64) bool { return a < b })
	case IRevOrd:
		result = compareBinary(v, func(a, b uint32) bool { return a > b })
	case LRevOrd:
		result = compareBinary(v, func(a, b uint64) bool { return a > b })
	case IEqOrd:
		result = compareBinary(v, func(a, b uint32) bool { return a <= b })
	case LEqOrd:
		result = compareBinary(v, func(a, b uint64) bool { return a <= b })

	case Goto:
		offset, s := fetch[uint16](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = v.branch(int16(offset))
	case If:
		offset, s := fetch[uint16](v)
		if s != ExitSuccess {
			result = s
			break
		}
		cond, s := stackPopSafe[uint32](v)
		if s != ExitSuccess {
			result = s
			break
		}
		if cond != 0 {
			result = v.branch(int16(offset))
		} else {
			result = ExitSuccess
		}
	case IfNot:
		offset, s := fetch[uint16](v)
		if s != ExitSuccess {
			result = s
			break
		}
		cond, s := stackPopSafe[uint32](v)
		if s != ExitSuccess {
			result = s
			break
		}
		if cond == 0 {
			result = v.branch(int16(offset))
		} else {
			result = ExitSuccess
		}

	case BAPush:
		result = v.execArrayPush(1)
	case SAPush:
		result = v.execArrayPush(2)
	case IAPush:
		result = v.execArrayPush(4)
	case LAPush:
		result = v.execArrayPush(8)

	case BALoad:
		result = execALoad[uint8, uint32](v)
	case SALoad:
		result = execALoad[uint16, uint32](v)
	case IALoad:
		result = execALoad[uint32, uint32](v)
	case LALoad:
		result = execALoad[uint64, uint64](v)

	case BAStore:
		result = execAStore[uint8](v)
	case SAStore:
		result = execAStore[uint16](v)
	case IAStore:
		result = execAStore[uint32](v)
	case LAStore:
		result = execAStore[uint64](v)

	case Drop:
		addr, s := stackPopSafe[uint64](v)
		if s != ExitSuccess {
			result = s
			break
		}
		result = v.heap.drop(addr)

	default:
		result = ExitUnknownOpcode
	}

	if result != ExitSuccess {
		v.fail(result)
	}
}

// branch applies an i16 offset relative to the program counter as it
// stands once the offset immediate itself has been consumed (spec.md
// §4.5): the target is pc-after-offset + offset, not pc-before-offset.
func (v *VM) branch(offset int16) ExitStatus {
	target := int64(v.pc) + int64(offset)
	if target < 0 || uint64(target) > v.img.len() {
		return ExitBytecodeAccessViolation
	}
	v.pc = uint64(target)
	return ExitSuccess
}

func checkedAddU32(a, b uint32) (uint32, bool) {
	sum := uint64(a) + uint64(b)
	return uint32(sum), sum > 0xFFFFFFFF
}

func checkedSubU32(a, b uint32) (uint32, bool) {
	if b > a {
		return 0, true
	}
	return a - b, false
}

func checkedMulU32(a, b uint32) (uint32, bool) {
	product := uint64(a) * uint64(b)
	return uint32(product), product > 0xFFFFFFFF
}

func checkedAddU64(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry != 0
}

func checkedSubU64(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, true
	}
	return a - b, false
}

func checkedMulU64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi != 0
}

// arithBinary pops right then left, applies a checked operation in that
// order (left op right), and pushes the result — or fails with
// ExitArithmeticOverflow (spec.md §4.5 Iadd/Isub/...).
func arithBinary[T unsignedWidth](v *VM, op func(a, b T) (T, bool)) ExitStatus {
	right, status := stackPopSafe[T](v)
	if status != ExitSuccess {
		return status
	}
	left, status := stackPopSafe[T](v)
	if status != ExitSuccess {
		return status
	}
	value, overflow := op(left, right)
	if overflow {
		return ExitArithmeticOverflow
	}
	return stackPush[T](v, value)
}

// divBinary pops right then left and pushes left/right, failing with
// ExitDivideByZero when right is zero.
func divBinary[T unsignedWidth](v *VM) ExitStatus {
	right, status := stackPopSafe[T](v)
	if status != ExitSuccess {
		return status
	}
	left, status := stackPopSafe[T](v)
	if status != ExitSuccess {
		return status
	}
	if right == 0 {
		return ExitDivideByZero
	}
	return stackPush[T](v, left/right)
}

// compareBinary pops right then left, applies cmp(left, right), and
// pushes 1 or 0.
func compareBinary[T unsignedWidth](v *VM, cmp func(a, b T) bool) ExitStatus {
	right, status := stackPopSafe[T](v)
	if status != ExitSuccess {
		return status
	}
	left, status := stackPopSafe[T](v)
	if status != ExitSuccess {
		return status
	}
	var result uint32
	if cmp(left, right) {
		result = 1
	}
	return stackPush[uint32](v, result)
}

func (v *VM) execArrayPush(elemWidth uint64) ExitStatus {
	n, status := stackPopSafe[uint64](v)
	if status != ExitSuccess {
		return status
	}
	addr, status := v.heap.alloc(elemWidth, n)
	if status != ExitSuccess {
		return status
	}
	return stackPush[uint64](v, addr)
}

// execALoad pops index then addr, loads array element i (width
// sizeof(Elem)) and pushes it as a Push (widened to sizeof(Push) the
// same way BALoad/SALoad/IALoad widen to u32 and LALoad stays u64).
func execALoad[Elem, Push unsignedWidth](v *VM) ExitStatus {
	index, status := stackPopSafe[uint64](v)
	if status != ExitSuccess {
		return status
	}
	addr, status := stackPopSafe[uint64](v)
	if status != ExitSuccess {
		return status
	}
	val, status := load[Elem](v.heap, addr, index)
	if status != ExitSuccess {
		return status
	}
	return stackPush[Push](v, Push(val))
}

// execAStore pops a u32 or u64 value (per Elem's width), narrowing it to
// Elem, then pops index then addr, and stores it (spec.md §4.3: Bastore
// narrows u32 to u8, Sastore narrows u32 to u16, Iastore/Lastore match
// the operand's own width).
func execAStore[Elem unsignedWidth](v *VM) ExitStatus {
	var raw64 uint64
	var status ExitStatus

	if widthOf[Elem]() == 8 {
		raw64, status = stackPopSafe[uint64](v)
	} else {
		var raw32 uint32
		raw32, status = stackPopSafe[uint32](v)
		raw64 = uint64(raw32)
	}
	if status != ExitSuccess {
		return status
	}

	index, status := stackPopSafe[uint64](v)
	if status != ExitSuccess {
		return status
	}
	addr, status := stackPopSafe[uint64](v)
	if status != ExitSuccess {
		return status
	}
	return store[Elem](v.heap, addr, index, Elem(raw64))
}

// execCall dispatches the Call opcode's u8 syscall id (spec.md §4.5).
func (v *VM) execCall(id uint8) ExitStatus {
	switch id {
	case 0x00:
		return v.sysReadStdin()
	case 0x01:
		return v.sysWriteStdout()
	default:
		return ExitUnknownCallNumber
	}
}

// sysReadStdin reads up to 4 bytes from fd 0, zero-pads whatever is
// missing (including at EOF), and pushes the result as a little-endian
// u32.
func (v *VM) sysReadStdin() ExitStatus {
	var buf [4]byte
	_, err := io.ReadFull(v.stdin, buf[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return ExitUnknown
	}
	return stackPush[uint32](v, binary.LittleEndian.Uint32(buf[:]))
}

// sysWriteStdout pops an array address and writes its payload (the
// bytes after the 8-byte length prefix) to fd 1, without dropping the
// array — the program retains ownership and must Drop it itself.
func (v *VM) sysWriteStdout() ExitStatus {
	addr, status := stackPopSafe[uint64](v)
	if status != ExitSuccess {
		return status
	}
	size, ok := v.heap.sizeInBytes(addr)
	if !ok {
		return ExitArrayAccessViolation
	}
	payload := v.heap.buffers[addr][arrayLenPrefix : arrayLenPrefix+size]
	if _, err := v.stdout.Write(payload); err != nil {
		return ExitUnknown
	}
	if err := v.stdout.Flush(); err != nil {
		return ExitUnknown
	}
	return ExitSuccess
}
