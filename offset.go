package ifd

// Offsets inside a directory are layered: a stated offset is relative to
// a base plus a data position, both carried by the enclosing DirectoryInfo.
// Some maker note variants state offsets relative to something else
// entirely (the entry itself, the start of the note); a BaseCorrector
// hook rewrites the base before the standard formula applies.

// A BaseCorrector inspects the raw bytes of a directory and returns a
// replacement base offset. The hint is the directory name being entered.
type BaseCorrector func(dir []byte, hint string) int64

// resolveOffset converts a directory-relative offset into an absolute
// buffer offset and validates it against the buffer size. It fails with
// BoundsError instead of producing a dangling reference.
func resolveOffset(base, dataPos, rel, size int64) (int64, error) {
	abs := base + dataPos + rel
	if abs < 0 || abs >= size {
		return 0, &BoundsError{Offset: abs, Length: 0, Size: size}
	}
	return abs, nil
}
