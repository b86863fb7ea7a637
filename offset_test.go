package ifd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOffsetRoundTrip(t *testing.T) {
	const size = 4096
	for _, base := range []int64{0, 10, 512} {
		for _, dataPos := range []int64{0, 6, 128} {
			for _, rel := range []int64{0, 1, 100, 3000} {
				abs, err := resolveOffset(base, dataPos, rel, size)
				if base+dataPos+rel >= size {
					assert.Error(t, err)
					continue
				}
				require.NoError(t, err)
				assert.Equal(t, rel, abs-base-dataPos)
			}
		}
	}
}

func TestResolveOffsetBounds(t *testing.T) {
	var berr *BoundsError

	_, err := resolveOffset(0, 0, 100, 100)
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, int64(100), berr.Offset)

	_, err = resolveOffset(-200, 0, 100, 100)
	assert.ErrorAs(t, err, &berr)

	abs, err := resolveOffset(0, 0, 99, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(99), abs)
}
