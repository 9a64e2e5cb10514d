//go:build gocv

package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatRoundTrip(t *testing.T) {
	r := randomRaster(16, 9, 5)

	mat, err := RasterToMat(r)
	require.NoError(t, err)
	defer mat.Close()

	back, err := RasterFromMat(mat)
	require.NoError(t, err)
	assert.True(t, r.Equal(back))
	assert.Equal(t, Checksum(r), Checksum(back))
}

func TestOpenCVBackendMatchesNative(t *testing.T) {
	r := randomRaster(33, 17, 9)
	want := Invert(r)

	fn, err := Backend(BackendOpenCV)
	require.NoError(t, err)
	require.NoError(t, fn(r))

	assert.True(t, want.Equal(r))
}
