package images

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
)

// Raster is an owned, mutable grid of straight (non-premultiplied) RGBA pixels.
// Rows are stored top to bottom, the origin is the top-left corner and the
// dimensions never change after creation.
type Raster struct {
	img *image.NRGBA
}

// NewRaster allocates a transparent black raster of the given size.
func NewRaster(width, height int) *Raster {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Raster{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// RasterFromImage copies any decoded image into a new Raster with its origin at (0, 0).
//
// Arguments:
// - src: The decoded source image.
//
// Returns:
// - A Raster owning its own pixel buffer.
func RasterFromImage(src image.Image) *Raster {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	// Straight RGBA sources are copied row by row to keep channel values exact.
	if n, ok := src.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			so := n.PixOffset(b.Min.X, b.Min.Y+y)
			do := dst.PixOffset(0, y)
			copy(dst.Pix[do:do+4*b.Dx()], n.Pix[so:so+4*b.Dx()])
		}
		return &Raster{img: dst}
	}

	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &Raster{img: dst}
}

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.img.Rect.Dx() }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.img.Rect.Dy() }

// Bounds returns the raster rectangle, always anchored at (0, 0).
func (r *Raster) Bounds() image.Rectangle { return r.img.Rect }

// Image exposes the backing image for encoders. Callers must not retain it past
// the lifetime of the raster.
func (r *Raster) Image() *image.NRGBA { return r.img }

// At returns the pixel at (x, y).
func (r *Raster) At(x, y int) color.NRGBA { return r.img.NRGBAAt(x, y) }

// Set writes the pixel at (x, y).
func (r *Raster) Set(x, y int, c color.NRGBA) { r.img.SetNRGBA(x, y, c) }

// Clone returns a deep copy of the raster.
func (r *Raster) Clone() *Raster {
	dst := image.NewNRGBA(r.img.Rect)
	copy(dst.Pix, r.img.Pix)
	return &Raster{img: dst}
}

// Crop copies the given rectangle into a new raster anchored at (0, 0).
// The rectangle is clipped to the raster bounds.
func (r *Raster) Crop(rect image.Rectangle) *Raster {
	rect = rect.Intersect(r.img.Rect)
	return RasterFromImage(r.img.SubImage(rect))
}

// Paste copies src into the raster with its top-left corner at p.
func (r *Raster) Paste(src *Raster, p image.Point) {
	dr := image.Rectangle{Min: p, Max: p.Add(src.Bounds().Size())}.Intersect(r.img.Rect)
	if dr.Empty() {
		return
	}
	n := 4 * dr.Dx()
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		so := src.img.PixOffset(dr.Min.X-p.X, y-p.Y)
		do := r.img.PixOffset(dr.Min.X, y)
		copy(r.img.Pix[do:do+n], src.img.Pix[so:so+n])
	}
}

// Equal reports whether both rasters have the same size and identical pixels.
func (r *Raster) Equal(o *Raster) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.img.Rect != o.img.Rect {
		return false
	}
	return bytes.Equal(r.img.Pix, o.img.Pix)
}
