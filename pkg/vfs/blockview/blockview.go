// Package blockview implements a bounds-checked, little-endian cursor
// over a []byte, used by the ROM filesystem to decode the packed image
// format. Grounded on spec §9's call
// for a typed "image view" that converts offsets to in-image references
// lazily and validates bounds on first access.
package blockview

import (
	"encoding/binary"
	"errors"
)

// ErrOutOfRange is returned when a read would go past the end of the
// underlying buffer.
var ErrOutOfRange = errors.New("blockview: offset out of range")

// Absent is the sentinel offset meaning "no such link" in the ROM image
// format (spec §6).
const Absent uint32 = 0xFFFFFFFF

// View is a read-only little-endian cursor over a borrowed byte slice.
// It never copies or retains ownership of buf.
type View struct {
	buf []byte
}

// New wraps buf for little-endian decoding. The caller retains ownership
// of buf; View never mutates it.
func New(buf []byte) View {
	return View{buf: buf}
}

// Len returns the length of the underlying buffer.
func (v View) Len() int { return len(v.buf) }

// Uint32 reads a little-endian uint32 at offset.
func (v View) Uint32(offset uint32) (uint32, error) {
	o := int(offset)
	if o < 0 || o+4 > len(v.buf) {
		return 0, ErrOutOfRange
	}
	return binary.LittleEndian.Uint32(v.buf[o : o+4]), nil
}

// CString reads a NUL-terminated byte string starting at offset.
func (v View) CString(offset uint32) (string, error) {
	o := int(offset)
	if o < 0 || o > len(v.buf) {
		return "", ErrOutOfRange
	}
	end := o
	for end < len(v.buf) && v.buf[end] != 0 {
		end++
	}
	if end >= len(v.buf) {
		return "", ErrOutOfRange
	}
	return string(v.buf[o:end]), nil
}

// Bytes returns a sub-slice [offset, offset+size) of the buffer without
// copying. The returned slice aliases the underlying image and must be
// treated as read-only by the caller.
func (v View) Bytes(offset, size uint32) ([]byte, error) {
	o, n := int(offset), int(size)
	if o < 0 || n < 0 || o+n > len(v.buf) {
		return nil, ErrOutOfRange
	}
	return v.buf[o : o+n], nil
}
