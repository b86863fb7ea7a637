package ifd

// Resources:
// https://www.fileformat.info/format/tiff/egff.htm
// https://www.awaresystems.be/imaging/tiff/specification/TIFFPM6.pdf (SubIFD Trees)
// https://www.loc.gov/preservation/digital/formats/content/tiff_tags.shtml (Tags description)

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Header is a decoded TIFF-style block header: byte order marker, magic
// and offset of the first directory.
type Header struct {
	ByteOrder binary.ByteOrder
	FirstDir  int64
}

// ParseHeader decodes the 8-byte block header at the start of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < headerLen {
		return Header{}, FormatError("header too short")
	}

	var order binary.ByteOrder
	switch string(buf[0:4]) {
	case leHeader:
		order = binary.LittleEndian
	case beHeader:
		order = binary.BigEndian
	default:
		return Header{}, FormatError("malformed header")
	}

	return Header{
		ByteOrder: order,
		FirstDir:  int64(order.Uint32(buf[4:8])),
	}, nil
}

// readValue decodes count elements of the given format at an absolute
// offset in buf. It is a pure function of its arguments: no state, no
// reads past the end of buf. A request whose span exceeds the buffer
// fails with BoundsError.
func readValue(buf []byte, off int64, format uint16, count uint32, order binary.ByteOrder) (Value, error) {
	elen := formatLength(format)
	if elen == 0 {
		return Value{}, UnsupportedError("data format")
	}
	span := int64(elen) * int64(count)
	if off < 0 || span < 0 || off+span > int64(len(buf)) {
		return Value{}, &BoundsError{Offset: off, Length: span, Size: int64(len(buf))}
	}
	raw := buf[off : off+span]

	switch format {
	case FormatASCII:
		// ASCII payloads are NUL terminated, sometimes padded with
		// several NULs or trailing spaces.
		return Str(string(bytes.TrimRight(raw, "\x00 "))), nil
	case FormatUndefined:
		return Bytes(raw), nil
	}

	vs := make([]Value, count)
	for i := uint32(0); i < count; i++ {
		p := raw[int64(i)*int64(elen):]
		switch format {
		case FormatByte:
			vs[i] = Uint(uint64(p[0]))
		case FormatSByte:
			vs[i] = Int(int64(int8(p[0])))
		case FormatShort:
			vs[i] = Uint(uint64(order.Uint16(p)))
		case FormatSShort:
			vs[i] = Int(int64(int16(order.Uint16(p))))
		case FormatLong:
			vs[i] = Uint(uint64(order.Uint32(p)))
		case FormatSLong:
			vs[i] = Int(int64(int32(order.Uint32(p))))
		case FormatRational:
			vs[i] = Rat(order.Uint32(p), order.Uint32(p[4:]))
		case FormatSRational:
			vs[i] = SRat(int32(order.Uint32(p)), int32(order.Uint32(p[4:])))
		case FormatFloat:
			vs[i] = Float(float64(math.Float32frombits(order.Uint32(p))))
		case FormatDouble:
			vs[i] = Float(math.Float64frombits(order.Uint64(p)))
		}
	}

	if count == 1 {
		return vs[0], nil
	}
	return List(vs...), nil
}
