package ifd

// A metadata block contains one or more directories (IFDs). Each
// directory holds entries of 12 bytes each:
//
//  - a tag identifier, which describes the signification of the entry,
//  - the data format and count of the entry,
//  - the data itself or a pointer to it if it is more than 4 bytes.
//
// The presence of a count means that each entry is effectively an array.

const (
	leHeader = "II\x2A\x00" // Header for little-endian blocks.
	beHeader = "MM\x00\x2A" // Header for big-endian blocks.

	entryLen  = 12 // Length of a directory entry in bytes.
	headerLen = 8  // Byte order marker + magic + first directory offset.
)

// Data formats (p. 14-16 of the TIFF spec).
const (
	FormatByte      uint16 = 1
	FormatASCII     uint16 = 2
	FormatShort     uint16 = 3
	FormatLong      uint16 = 4
	FormatRational  uint16 = 5
	FormatSByte     uint16 = 6
	FormatUndefined uint16 = 7
	FormatSShort    uint16 = 8
	FormatSLong     uint16 = 9
	FormatSRational uint16 = 10
	FormatFloat     uint16 = 11
	FormatDouble    uint16 = 12
)

// The length of one instance of each data format in bytes.
var formatLengths = [...]uint32{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8}

// formatLength returns the byte size of one element of the given format,
// or 0 if the format code is unrecognized.
func formatLength(format uint16) uint32 {
	if int(format) >= len(formatLengths) {
		return 0
	}
	return formatLengths[format]
}

// Hard caps so corrupted input cannot cause unbounded work. Both can be
// raised per extraction through Options.
const (
	defaultMaxDepth   = 10
	defaultMaxEntries = 512
)
