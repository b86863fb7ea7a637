package ifd_test

import (
	"encoding/binary"

	"github.com/mdouchement/ifd"
)

// blockWriter assembles TIFF-style test buffers byte by byte. Offsets
// are absolute in the buffer, which matches base=0, dataPos=0.
type blockWriter struct {
	order binary.ByteOrder
	buf   []byte
}

// newLE starts a little-endian block with its 8-byte header pointing
// at offset 8, where the first directory is expected.
func newLE() *blockWriter {
	w := &blockWriter{order: binary.LittleEndian}
	w.raw([]byte("II\x2A\x00"))
	w.u32(8)
	return w
}

func (w *blockWriter) pos() int { return len(w.buf) }

func (w *blockWriter) raw(b []byte) int {
	off := len(w.buf)
	w.buf = append(w.buf, b...)
	return off
}

func (w *blockWriter) u16(v uint16) int {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	return w.raw(b[:])
}

func (w *blockWriter) u32(v uint32) int {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	return w.raw(b[:])
}

// entry writes one 12-byte record. val must be exactly 4 bytes (inline
// value or offset).
func (w *blockWriter) entry(id, format uint16, count uint32, val [4]byte) {
	w.u16(id)
	w.u16(format)
	w.u32(count)
	w.raw(val[:])
}

// patch32 overwrites a previously written 32-bit field.
func (w *blockWriter) patch32(off int, v uint32) {
	w.order.PutUint32(w.buf[off:], v)
}

// short16 renders a SHORT inline value field.
func (w *blockWriter) short16(v uint16) [4]byte {
	var b [4]byte
	w.order.PutUint16(b[:2], v)
	return b
}

// off32 renders an offset value field.
func (w *blockWriter) off32(v uint32) [4]byte {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	return b
}

// rational appends a num/den pair to the data area and returns its
// offset.
func (w *blockWriter) rational(num, den uint32) int {
	off := w.u32(num)
	w.u32(den)
	return off
}

func dirInfo(name string, start int64) ifd.DirectoryInfo {
	return ifd.DirectoryInfo{Name: name, Start: start}
}
