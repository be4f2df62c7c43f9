package vm

import "encoding/binary"

// MagicNumber is the fixed byte sequence every image must begin with.
// Bytecode container parsing (header field layout beyond the magic
// number) belongs to an external loader; the interpreter only checks
// this prefix before treating the rest of the header as opaque.
var MagicNumber = [4]byte{'S', 'V', 'M', 1}

const (
	// HeaderSize is the number of leading image bytes reserved for the
	// container header. The interpreter does not interpret any of it
	// beyond the magic number check in Launch.
	HeaderSize = 128

	// PoolOffset is the byte offset of the first constant-pool entry.
	PoolOffset = 128

	// MaxStack is the fixed capacity, in bytes, of the operand stack
	// region (shared by the frame anchor, variable tables, and operand
	// values of every active call).
	MaxStack = 1024

	poolEntrySize       = 8  // each pool slot holds one u64 offset
	funcDescriptorSize  = 11 // start_addr u64 + var_len u16 + arg_len u8, no padding
)

// unsignedWidth is the set of unsigned integer widths the image, pool, and
// operand stack read and write at arbitrary byte offsets.
type unsignedWidth interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func widthOf[T unsignedWidth]() uint64 {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	case uint64:
		return 8
	default:
		return 0
	}
}

func decodeUnsigned[T unsignedWidth](b []byte) T {
	switch widthOf[T]() {
	case 1:
		return T(b[0])
	case 2:
		return T(binary.LittleEndian.Uint16(b))
	case 4:
		return T(binary.LittleEndian.Uint32(b))
	default:
		return T(binary.LittleEndian.Uint64(b))
	}
}

func encodeUnsigned[T unsignedWidth](b []byte, v T) {
	switch widthOf[T]() {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}

// image is the immutable byte buffer backing a single VM run: header,
// constant pool, and code all live in the same read-only slice. The
// interpreter never writes to it.
type image struct {
	bytes []byte
}

func newImage(b []byte) *image {
	return &image{bytes: b}
}

func (img *image) len() uint64 {
	return uint64(len(img.bytes))
}

// cursor reads successive fixed-width values out of an image starting at
// an arbitrary byte offset, advancing after each read. The same type
// drives both instruction fetch (pc) and pool traversal (pp); the
// distinction is only which field of the VM owns the cursor.
type cursor struct {
	img *image
	pos uint64
}

// jump moves the cursor to an absolute offset. It fails with
// ExitBytecodeAccessViolation if the offset is past the end of the image
// (spec.md §4.1: "fails... if offset > IMAGE_LEN").
func (c *cursor) jump(offset uint64) ExitStatus {
	if offset > c.img.len() {
		return ExitBytecodeAccessViolation
	}
	c.pos = offset
	return ExitSuccess
}

// cursorNext reads a value of width sizeof(T) at the cursor and advances past
// it, failing with ExitBytecodeAccessViolation if the read would run past
// the end of the image.
func cursorNext[T unsignedWidth](c *cursor) (T, ExitStatus) {
	width := widthOf[T]()
	if c.pos+width > c.img.len() {
		var zero T
		return zero, ExitBytecodeAccessViolation
	}
	v := decodeUnsigned[T](c.img.bytes[c.pos : c.pos+width])
	c.pos += width
	return v, ExitSuccess
}
