package images

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatPNG is the PNG image format. It is the format hosts exchange by default.
	FormatPNG ImageFormat = "png"
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatGIF is the GIF image format.
	FormatGIF ImageFormat = "gif"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatTIFF is the TIFF image format.
	FormatTIFF ImageFormat = "tiff"
)

var mimeTypes = map[ImageFormat]string{
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatWebP: "image/webp",
	FormatGIF:  "image/gif",
	FormatBMP:  "image/bmp",
	FormatTIFF: "image/tiff",
}

// MIMEType returns the media type used in data URL framing and clipboard entries.
func (f ImageFormat) MIMEType() string {
	if m, ok := mimeTypes[f]; ok {
		return m
	}
	return "application/octet-stream"
}

// Lossless reports whether the format can carry an RGBA raster without losing pixel values.
func (f ImageFormat) Lossless() bool {
	switch f {
	case FormatPNG, FormatBMP, FormatTIFF:
		return true
	default:
		return false
	}
}

// ParseFormat normalizes a user or host supplied format name ("Png", "jpg", "image/png").
//
// Arguments:
// - s: The format name or media type.
//
// Returns:
// - The normalized format and true, or "" and false when the name is unknown.
func ParseFormat(s string) (ImageFormat, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "image/") {
		return FormatFromMIME(s)
	}
	switch s {
	case "png":
		return FormatPNG, true
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "webp":
		return FormatWebP, true
	case "gif":
		return FormatGIF, true
	case "bmp":
		return FormatBMP, true
	case "tif", "tiff":
		return FormatTIFF, true
	}
	return "", false
}

// FormatFromMIME maps a media type such as "image/png" to its ImageFormat.
func FormatFromMIME(mime string) (ImageFormat, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "image/jpg" || mime == "image/pjpeg" {
		return FormatJPEG, true
	}
	if mime == "image/x-ms-bmp" {
		return FormatBMP, true
	}
	for f, m := range mimeTypes {
		if m == mime {
			return f, true
		}
	}
	return "", false
}

// Sniff identifies the format of raw encoded bytes from their content.
//
// Arguments:
// - data: The decoded (binary) image bytes.
//
// Returns:
// - The detected format and true, or "" and false when the content is not a known image.
func Sniff(data []byte) (ImageFormat, bool) {
	if len(data) == 0 {
		return "", false
	}
	return FormatFromMIME(mimetype.Detect(data).String())
}
