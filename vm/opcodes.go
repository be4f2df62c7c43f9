package vm

// Opcode is a single bytecode instruction tag. Immediate operands, where an
// opcode has any, follow the opcode byte directly in the image and are
// documented per-opcode below.
type Opcode byte

const (
	Nop Opcode = 0x00
	Exit Opcode = 0x01
	Call Opcode = 0x02 // u8 syscall id

	Invoke Opcode = 0x03 // u64 pool index
	Ret    Opcode = 0x04

	BPush Opcode = 0x05 // u8 immediate, zero-extended to u32
	SPush Opcode = 0x06 // u16 immediate, zero-extended to u32
	IPush Opcode = 0x07 // u32 immediate
	LPush Opcode = 0x08 // u64 immediate

	Dup  Opcode = 0x09
	Dup2 Opcode = 0x0A
	Pop  Opcode = 0x0B
	Pop2 Opcode = 0x0C

	Load  Opcode = 0x0D // u16 variable index
	Load2 Opcode = 0x0E // u16 variable index
	Store Opcode = 0x0F // u16 variable index
	Store2 Opcode = 0x10 // u16 variable index

	IAdd Opcode = 0x11
	ISub Opcode = 0x12
	IMul Opcode = 0x13
	IDiv Opcode = 0x14
	LAdd Opcode = 0x15
	LSub Opcode = 0x16
	LMul Opcode = 0x17
	LDiv Opcode = 0x18

	IEq     Opcode = 0x19
	LEq     Opcode = 0x1A
	IOrd    Opcode = 0x1B // left < right
	LOrd    Opcode = 0x1C
	IRevOrd Opcode = 0x1D // left > right
	LRevOrd Opcode = 0x1E
	IEqOrd  Opcode = 0x1F // left <= right
	LEqOrd  Opcode = 0x20

	Goto   Opcode = 0x21 // i16 offset
	If     Opcode = 0x22 // i16 offset, pops u32 cond
	IfNot  Opcode = 0x23 // i16 offset, pops u32 cond

	BAPush Opcode = 0x24 // pops u64 length, pushes array address
	SAPush Opcode = 0x25
	IAPush Opcode = 0x26
	LAPush Opcode = 0x27

	BALoad Opcode = 0x28
	SALoad Opcode = 0x29
	IALoad Opcode = 0x2A
	LALoad Opcode = 0x2B

	BAStore Opcode = 0x2C
	SAStore Opcode = 0x2D
	IAStore Opcode = 0x2E
	LAStore Opcode = 0x2F

	Drop Opcode = 0x30
)

var opcodeNames = map[Opcode]string{
	Nop: "nop", Exit: "exit", Call: "call",
	Invoke: "invoke", Ret: "ret",
	BPush: "bpush", SPush: "spush", IPush: "ipush", LPush: "lpush",
	Dup: "dup", Dup2: "dup2", Pop: "pop", Pop2: "pop2",
	Load: "load", Load2: "load2", Store: "store", Store2: "store2",
	IAdd: "iadd", ISub: "isub", IMul: "imul", IDiv: "idiv",
	LAdd: "ladd", LSub: "lsub", LMul: "lmul", LDiv: "ldiv",
	IEq: "ieq", LEq: "leq",
	IOrd: "iord", LOrd: "lord",
	IRevOrd: "irevord", LRevOrd: "lrevord",
	IEqOrd: "ieqord", LEqOrd: "leqord",
	Goto: "goto", If: "if", IfNot: "ifnot",
	BAPush: "bapush", SAPush: "sapush", IAPush: "iapush", LAPush: "lapush",
	BALoad: "baload", SALoad: "saload", IALoad: "iaload", LALoad: "laload",
	BAStore: "bastore", SAStore: "sastore", IAStore: "iastore", LAStore: "lastore",
	Drop: "drop",
}

// String renders an opcode mnemonic for use with Print/Sprint and the
// tracer; unrecognized bytes print as "?unknown?" the same way the teacher
// VM's Bytecode.String does.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "?unknown?"
}
