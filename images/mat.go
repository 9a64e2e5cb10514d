//go:build gocv

package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// BackendOpenCV inverts through OpenCV's bitwise NOT. Only built with the gocv tag.
const BackendOpenCV = "gocv"

func init() {
	RegisterBackend(BackendOpenCV, invertWithMat)
}

// RasterToMat copies a raster into a 4-channel 8-bit Mat in RGBA channel order.
//
// Arguments:
// - r: The raster to copy.
//
// Returns:
// - gocv.Mat: The new Mat. The caller must Close it.
// - error: An error if the Mat could not be created.
func RasterToMat(r *Raster) (gocv.Mat, error) {
	buf := make([]byte, len(r.img.Pix))
	copy(buf, r.img.Pix)
	mat, err := gocv.NewMatFromBytes(r.Height(), r.Width(), gocv.MatTypeCV8UC4, buf)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "create mat from raster")
	}
	return mat, nil
}

// RasterFromMat copies a 4-channel 8-bit RGBA Mat into a new raster.
func RasterFromMat(mat gocv.Mat) (*Raster, error) {
	if mat.Empty() {
		return nil, errors.New("mat is empty")
	}
	if mat.Type() != gocv.MatTypeCV8UC4 {
		return nil, errors.Errorf("mat type %v is not CV_8UC4", mat.Type())
	}
	data, err := mat.DataPtrUint8()
	if err != nil {
		return nil, errors.Wrap(err, "read mat data")
	}
	r := NewRaster(mat.Cols(), mat.Rows())
	copy(r.img.Pix, data)
	return r, nil
}

// InvertMat returns a Mat with the first three channels bitwise inverted. A fourth
// (alpha) channel is carried over unchanged.
//
// Arguments:
// - src: A 3- or 4-channel 8-bit Mat.
//
// Returns:
// - gocv.Mat: The inverted Mat. The caller must Close it.
// - error: An error if the channel layout is unsupported.
func InvertMat(src gocv.Mat) (gocv.Mat, error) {
	dst := gocv.NewMat()
	switch src.Channels() {
	case 3:
		gocv.BitwiseNot(src, &dst)
		return dst, nil
	case 4:
		planes := gocv.Split(src)
		defer func() {
			for _, p := range planes {
				p.Close()
			}
		}()
		for i := 0; i < 3; i++ {
			inv := gocv.NewMat()
			gocv.BitwiseNot(planes[i], &inv)
			planes[i].Close()
			planes[i] = inv
		}
		gocv.Merge(planes, &dst)
		return dst, nil
	default:
		dst.Close()
		return gocv.NewMat(), errors.Errorf("unsupported channel count %d", src.Channels())
	}
}

func invertWithMat(r *Raster) error {
	if r.Bounds().Empty() {
		return nil
	}
	src, err := RasterToMat(r)
	if err != nil {
		return err
	}
	defer src.Close()

	inv, err := InvertMat(src)
	if err != nil {
		return err
	}
	defer inv.Close()

	out, err := RasterFromMat(inv)
	if err != nil {
		return err
	}
	copy(r.img.Pix, out.img.Pix)
	return nil
}
