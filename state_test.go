package ifd

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateEnterLeave(t *testing.T) {
	st := newState(binary.LittleEndian)

	require.NoError(t, st.enter(8, "IFD0", false))
	require.NoError(t, st.enter(100, "ExifIFD", false))
	assert.Equal(t, "IFD0/ExifIFD", st.dir())

	st.leave()
	assert.Equal(t, "IFD0", st.dir())

	// The processed set survives leave: a sibling pointing at the same
	// address is still a circular reference.
	err := st.enter(100, "Again", false)
	var cerr *CircularRefError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Again", cerr.Name)
	assert.Equal(t, "ExifIFD", cerr.Previous)
	assert.Equal(t, "IFD0", st.dir(), "failed enter must not grow the path")

	// Reprocessing can be explicitly permitted.
	require.NoError(t, st.enter(100, "Again", true))
	st.leave()
	st.leave()
	assert.Equal(t, "", st.dir())
}

func TestStateMembers(t *testing.T) {
	st := newState(binary.BigEndian)
	st.setMember("NumPoints", Uint(9))

	v, ok := st.member("NumPoints")
	require.True(t, ok)
	n, _ := v.Uint64()
	assert.Equal(t, uint64(9), n)

	assert.Equal(t, "", st.memberText("Model"))
	st.setMember("Model", Str("EOS R5"))
	assert.Equal(t, "EOS R5", st.memberText("Model"))
}

func TestStateEntryIndex(t *testing.T) {
	st := newState(binary.LittleEndian)
	st.addEntry(&Entry{Group: "EXIF", ID: 1, Name: "Width", Value: Uint(640)})
	st.addEntry(&Entry{Group: "GPS", ID: 1, Name: "Width", Value: Uint(480)})

	e, ok := st.lookup("Width")
	require.True(t, ok)
	u, _ := e.Value.Uint64()
	assert.Equal(t, uint64(640), u, "first extraction of a bare name wins")

	e, ok = st.lookup("GPS:Width")
	require.True(t, ok)
	u, _ = e.Value.Uint64()
	assert.Equal(t, uint64(480), u)
}
