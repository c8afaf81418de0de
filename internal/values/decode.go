// internal/values/decode.go
package values

import (
	"encoding/binary"
	"math"
)

// Widths in bytes of the decoded types.
const (
	WidthBool    = 1
	WidthByte    = 1
	WidthInt16   = 2
	WidthUint16  = 2
	WidthInt32   = 4
	WidthUint32  = 4
	WidthFloat32 = 4
)

// Bool returns bit of b[0]. Only the low three bits of bit are used.
func Bool(b []byte, bit int) bool {
	return (b[0]>>(uint(bit)&7))&0x01 == 1
}

// BitIndex splits an absolute bit index into byte offset and bit offset.
func BitIndex(i int) (byteOffset, bitOffset int) {
	return i / 8, i % 8
}

// Byte returns b[0].
func Byte(b []byte) uint8 { return b[0] }

// Uint16 composes b[0:2] big-endian (WORD).
func Uint16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// Int16 composes b[0:2] big-endian as two's complement (INT).
func Int16(b []byte) int16 { return int16(binary.BigEndian.Uint16(b)) }

// Uint32 composes b[0:4] big-endian (DWORD).
func Uint32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// Int32 composes b[0:4] big-endian as two's complement (DINT).
func Int32(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) }

// Float32 reinterprets the big-endian 32-bit pattern in b[0:4] as IEEE-754 binary32 (REAL).
func Float32(b []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(b)) }
