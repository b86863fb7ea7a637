package ifd

import (
	"fmt"
)

// A FormatError reports that a directory is not structurally valid and
// cannot be traversed. It is fatal for that directory only.
type FormatError string

func (e FormatError) Error() string {
	return fmt.Sprintf("ifd: invalid format: %s", string(e))
}

// An UnsupportedError reports that the input uses a valid but
// unimplemented feature.
type UnsupportedError string

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("ifd: unsupported feature: %s", string(e))
}

// A BoundsError reports a read or offset that falls outside the buffer.
type BoundsError struct {
	Offset int64
	Length int64
	Size   int64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("ifd: out of bounds: %d bytes at offset %d in buffer of %d", e.Length, e.Offset, e.Size)
}

// A CircularRefError reports a subdirectory whose address was already
// processed. The offending branch is abandoned, not the extraction.
type CircularRefError struct {
	Name     string
	Previous string
}

func (e *CircularRefError) Error() string {
	return fmt.Sprintf("ifd: circular reference: %s already processed as %s", e.Name, e.Previous)
}

// WarnCode classifies a recovered condition attached to a successful
// extraction result.
type WarnCode int

const (
	// WarnMinor covers a single skipped tag: bad count or format,
	// value span outside the buffer, failed conversion.
	WarnMinor WarnCode = iota

	// WarnCircular marks an abandoned subdirectory branch.
	WarnCircular

	// WarnComposite marks a derived tag omitted because its
	// dependencies are unsatisfiable or cyclic.
	WarnComposite
)

func (c WarnCode) String() string {
	switch c {
	case WarnMinor:
		return "minor"
	case WarnCircular:
		return "circular"
	case WarnComposite:
		return "composite"
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// A Warning is a recovered condition. Warnings never abort extraction;
// they ride along with the result.
type Warning struct {
	Code    WarnCode
	Dir     string // directory path at the time of the condition
	Message string
}

func (w Warning) String() string {
	if w.Dir == "" {
		return fmt.Sprintf("[%s] %s", w.Code, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Code, w.Dir, w.Message)
}
