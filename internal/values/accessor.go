// internal/values/accessor.go
package values

import (
	"errors"
	"fmt"
)

// ErrNotFound means no registered block covers the requested bytes.
var ErrNotFound = errors.New("values: no block covers offset")

// Source is the read contract of the block registry.
type Source interface {
	View(db, offset, width int, fn func(b []byte)) bool
}

// Accessor decodes typed values from a Source.
//
// Plain getters return false/0/0.0 when no block covers the offset.
// Lookup getters return ErrNotFound instead.
type Accessor struct {
	src Source
}

// NewAccessor binds decoders to src.
func NewAccessor(src Source) *Accessor {
	return &Accessor{src: src}
}

func lookup[T any](src Source, db, offset, width int, dec func([]byte) T) (T, error) {
	var v T
	if !src.View(db, offset, width, func(b []byte) { v = dec(b) }) {
		return v, fmt.Errorf("%w: db=%d offset=%d width=%d", ErrNotFound, db, offset, width)
	}
	return v, nil
}

// ---- explicit miss ----

func (a *Accessor) LookupBool(db, byteOffset, bitOffset int) (bool, error) {
	if bitOffset < 0 || bitOffset > 7 {
		return false, fmt.Errorf("%w: db=%d offset=%d bit=%d", ErrNotFound, db, byteOffset, bitOffset)
	}
	return lookup(a.src, db, byteOffset, WidthBool, func(b []byte) bool { return Bool(b, bitOffset) })
}

func (a *Accessor) LookupBoolAt(db, bitIndex int) (bool, error) {
	if bitIndex < 0 {
		return false, fmt.Errorf("%w: db=%d bit index=%d", ErrNotFound, db, bitIndex)
	}
	byteOffset, bitOffset := BitIndex(bitIndex)
	return a.LookupBool(db, byteOffset, bitOffset)
}

func (a *Accessor) LookupByte(db, byteOffset int) (uint8, error) {
	return lookup(a.src, db, byteOffset, WidthByte, Byte)
}

func (a *Accessor) LookupInt16(db, byteOffset int) (int16, error) {
	return lookup(a.src, db, byteOffset, WidthInt16, Int16)
}

func (a *Accessor) LookupUint16(db, byteOffset int) (uint16, error) {
	return lookup(a.src, db, byteOffset, WidthUint16, Uint16)
}

func (a *Accessor) LookupInt32(db, byteOffset int) (int32, error) {
	return lookup(a.src, db, byteOffset, WidthInt32, Int32)
}

func (a *Accessor) LookupUint32(db, byteOffset int) (uint32, error) {
	return lookup(a.src, db, byteOffset, WidthUint32, Uint32)
}

func (a *Accessor) LookupFloat32(db, byteOffset int) (float32, error) {
	return lookup(a.src, db, byteOffset, WidthFloat32, Float32)
}

// ---- silent miss ----

// Bool returns bit bitOffset of byte byteOffset in area db.
func (a *Accessor) Bool(db, byteOffset, bitOffset int) bool {
	v, _ := a.LookupBool(db, byteOffset, bitOffset)
	return v
}

// BoolAt returns the bit at absolute bit index bitIndex in area db.
func (a *Accessor) BoolAt(db, bitIndex int) bool {
	v, _ := a.LookupBoolAt(db, bitIndex)
	return v
}

func (a *Accessor) Byte(db, byteOffset int) uint8 {
	v, _ := a.LookupByte(db, byteOffset)
	return v
}

func (a *Accessor) Int16(db, byteOffset int) int16 {
	v, _ := a.LookupInt16(db, byteOffset)
	return v
}

func (a *Accessor) Uint16(db, byteOffset int) uint16 {
	v, _ := a.LookupUint16(db, byteOffset)
	return v
}

func (a *Accessor) Int32(db, byteOffset int) int32 {
	v, _ := a.LookupInt32(db, byteOffset)
	return v
}

func (a *Accessor) Uint32(db, byteOffset int) uint32 {
	v, _ := a.LookupUint32(db, byteOffset)
	return v
}

func (a *Accessor) Float32(db, byteOffset int) float32 {
	v, _ := a.LookupFloat32(db, byteOffset)
	return v
}
