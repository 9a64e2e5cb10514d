package images

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want ImageFormat
		ok   bool
	}{
		{"Png", FormatPNG, true},
		{"JPG", FormatJPEG, true},
		{"jpeg", FormatJPEG, true},
		{"image/png", FormatPNG, true},
		{"image/jpeg; charset=binary", FormatJPEG, true},
		{"tif", FormatTIFF, true},
		{"svg", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFormat(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatProperties(t *testing.T) {
	assert.Equal(t, "image/png", FormatPNG.MIMEType())
	assert.Equal(t, "application/octet-stream", ImageFormat("svg").MIMEType())
	assert.True(t, FormatPNG.Lossless())
	assert.True(t, FormatBMP.Lossless())
	assert.False(t, FormatJPEG.Lossless())
	assert.False(t, FormatWebP.Lossless())
}

func TestSniff(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))

	var pngBuf, jpegBuf, gifBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))
	require.NoError(t, jpeg.Encode(&jpegBuf, img, nil))
	require.NoError(t, gif.Encode(&gifBuf, img, nil))

	f, ok := Sniff(pngBuf.Bytes())
	assert.True(t, ok)
	assert.Equal(t, FormatPNG, f)

	f, ok = Sniff(jpegBuf.Bytes())
	assert.True(t, ok)
	assert.Equal(t, FormatJPEG, f)

	f, ok = Sniff(gifBuf.Bytes())
	assert.True(t, ok)
	assert.Equal(t, FormatGIF, f)

	_, ok = Sniff([]byte("plain text, not an image"))
	assert.False(t, ok)

	_, ok = Sniff(nil)
	assert.False(t, ok)
}

func TestPayloadPreview(t *testing.T) {
	p := Payload{Data: "abcdefghij"}
	assert.Equal(t, "abcde...", p.Preview(5))
	assert.Equal(t, "abcdefghij", p.Preview(30))
	assert.False(t, p.Empty())
	assert.True(t, Payload{Data: "  \n"}.Empty())
}
