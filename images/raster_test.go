package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRasterFromImageNormalizesOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 20, 13, 22))
	src.SetNRGBA(10, 20, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	src.SetNRGBA(12, 21, color.NRGBA{R: 9, G: 8, B: 7, A: 6})

	r := RasterFromImage(src)

	require.Equal(t, image.Rect(0, 0, 3, 2), r.Bounds())
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 4}, r.At(0, 0))
	assert.Equal(t, color.NRGBA{R: 9, G: 8, B: 7, A: 6}, r.At(2, 1))

	// The raster owns its buffer.
	src.SetNRGBA(10, 20, color.NRGBA{})
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 4}, r.At(0, 0))
}

func TestRasterFromImageConvertsOpaqueRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 255, G: 0, B: 10, A: 255})
	src.SetRGBA(1, 0, color.RGBA{R: 3, G: 4, B: 5, A: 255})

	r := RasterFromImage(src)

	assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 10, A: 255}, r.At(0, 0))
	assert.Equal(t, color.NRGBA{R: 3, G: 4, B: 5, A: 255}, r.At(1, 0))
}

func TestRasterFromImageGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 1, 1))
	src.SetGray(0, 0, color.Gray{Y: 77})

	r := RasterFromImage(src)

	assert.Equal(t, color.NRGBA{R: 77, G: 77, B: 77, A: 255}, r.At(0, 0))
}

func TestRasterCropAndPaste(t *testing.T) {
	r := NewRaster(4, 4)
	r.Set(2, 3, color.NRGBA{R: 50, A: 255})

	crop := r.Crop(image.Rect(2, 2, 10, 10))
	require.Equal(t, image.Rect(0, 0, 2, 2), crop.Bounds())
	assert.Equal(t, color.NRGBA{R: 50, A: 255}, crop.At(0, 1))

	dst := NewRaster(4, 4)
	dst.Paste(crop, image.Pt(2, 2))
	assert.True(t, r.Equal(dst))

	// Pasting partly out of bounds is clipped, not a panic.
	dst.Paste(crop, image.Pt(3, 3))
	assert.Equal(t, color.NRGBA{}, dst.At(3, 3))
}

func TestRasterEqual(t *testing.T) {
	a := NewRaster(2, 2)
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Set(1, 1, color.NRGBA{A: 1})
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(NewRaster(2, 3)))
	assert.False(t, a.Equal(nil))
}

func TestParallelCoversRangeOnce(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 1000, 4097} {
		hits := make([]int, n)
		Parallel(n, func(start, end int) {
			for i := start; i < end; i++ {
				hits[i]++
			}
		})
		for i, h := range hits {
			assert.Equal(t, 1, h, "n=%d index %d", n, i)
		}
	}
}
