package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-invert/images"
)

func TestSplitFrame(t *testing.T) {
	f, err := SplitFrame("  data:image/PNG;base64,QUJD  ")
	require.NoError(t, err)
	assert.True(t, f.Framed)
	assert.Equal(t, "image/png", f.MIMEType)
	assert.Equal(t, "QUJD", f.Body)

	f, err = SplitFrame("QUJD")
	require.NoError(t, err)
	assert.False(t, f.Framed)
	assert.Equal(t, "", f.MIMEType)
	assert.Equal(t, "QUJD", f.Body)
}

func TestAttach(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,QUJD", Attach(images.FormatPNG, "QUJD"))
	assert.Equal(t, "data:image/tiff;base64,QUJD", Attach(images.FormatTIFF, "QUJD"))
}

func TestDecodeText(t *testing.T) {
	for _, s := range []string{"QUJD", "data:text/plain;base64,QUJD", "QU\nJD", "QUJDRA", "QUJDRA=="} {
		raw, err := DecodeText(s)
		require.NoError(t, err, s)
		assert.Contains(t, string(raw), "ABC")
	}

	_, err := DecodeText("data:image/png,QUJD")
	assert.ErrorIs(t, err, ErrDecode)
	_, err = DecodeText("   ")
	assert.ErrorIs(t, err, ErrDecode)
}
