package images

import "image"

// Invert returns a new raster whose red, green and blue channels are 255 minus the
// source values. Alpha is copied unchanged and the source is left untouched.
//
// Arguments:
// - src: The raster to invert.
//
// Returns:
// - The inverted raster, same dimensions as src.
//
// @example
// out := images.Invert(raster)
func Invert(src *Raster) *Raster {
	dst := src.Clone()
	InvertInPlace(dst)
	return dst
}

// InvertInPlace inverts the colour channels of every pixel of r.
func InvertInPlace(r *Raster) {
	InvertRect(r, r.Bounds())
}

// InvertRect inverts the colour channels of the pixels inside rect, clipped to the
// raster bounds. Pixels are independent of each other, so inverting disjoint tiles
// and inverting the whole raster produce the same result.
//
// Arguments:
// - r: The raster to modify.
// - rect: The region to invert.
//
// Returns:
// - None.
func InvertRect(r *Raster, rect image.Rectangle) {
	rect = rect.Intersect(r.img.Rect)
	if rect.Empty() {
		return
	}

	img := r.img
	rowBytes := 4 * rect.Dx()
	Parallel(rect.Dy(), func(start, end int) {
		for y := rect.Min.Y + start; y < rect.Min.Y+end; y++ {
			off := img.PixOffset(rect.Min.X, y)
			invertRow(img.Pix[off : off+rowBytes])
		}
	})
}

// invertRow flips R, G and B of a run of NRGBA pixels.
func invertRow(px []uint8) {
	for i := 0; i+3 < len(px); i += 4 {
		px[i] = 255 - px[i]
		px[i+1] = 255 - px[i+1]
		px[i+2] = 255 - px[i+2]
	}
}
