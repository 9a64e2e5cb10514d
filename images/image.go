// Package images - Payload and raster types shared by the codec, the inverter and the
// host strategies.
package images

import "strings"

// Payload is an encoded image as exchanged with a host document.
type Payload struct {
	// The declared format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The base64 text of the image, with or without a data URL prefix.
	Data string `json:"data" yaml:"data"`
	// Framed is true when Data carries a "data:<mime>;base64," prefix.
	Framed bool `json:"framed" yaml:"framed"`
}

// Empty reports whether the payload carries no image text at all.
func (p Payload) Empty() bool {
	return strings.TrimSpace(p.Data) == ""
}

// Preview returns at most n leading characters of the payload text for diagnostics.
//
// Arguments:
// - n: The maximum number of characters to return.
//
// Returns:
// - The leading characters of Data, suffixed with "..." when truncated.
//
// @example
// log.Printf("cannot decode %q", payload.Preview(30))
func (p Payload) Preview(n int) string {
	r := []rune(p.Data)
	if n <= 0 || len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
