package codec

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-invert/images"
)

const (
	dataScheme   = "data:"
	base64Marker = ";base64"
)

// Frame is the parsed form of a payload text: the media type announced by a data URL
// prefix (empty when the payload is unframed) and the bare base64 body.
type Frame struct {
	MIMEType string
	Body     string
	Framed   bool
}

// SplitFrame separates an optional "data:<mime>;base64," prefix from the base64 body.
//
// Arguments:
// - s: The payload text as returned by the host.
//
// Returns:
// - Frame: The media type (if framed) and the body with surrounding whitespace removed.
// - error: When a data URL is present but does not declare base64 content.
//
// @example
// f, _ := SplitFrame("data:image/png;base64,iVBORw0K...")
// // f.MIMEType == "image/png", f.Body == "iVBORw0K...", f.Framed == true
func SplitFrame(s string) (Frame, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), dataScheme) {
		return Frame{Body: s}, nil
	}

	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return Frame{}, errors.Wrap(ErrDecode, "data URL has no payload separator")
	}
	header := s[len(dataScheme):comma]
	if !strings.HasSuffix(strings.ToLower(header), base64Marker) {
		return Frame{}, errors.Wrapf(ErrDecode, "data URL %q is not base64 encoded", header)
	}
	mime := header[:len(header)-len(base64Marker)]
	return Frame{
		MIMEType: strings.ToLower(strings.TrimSpace(mime)),
		Body:     strings.TrimSpace(s[comma+1:]),
		Framed:   true,
	}, nil
}

// Attach prefixes a bare base64 body with a data URL header for the given format.
func Attach(format images.ImageFormat, body string) string {
	return dataScheme + format.MIMEType() + base64Marker + "," + body
}

// decodeBase64 tolerates line breaks, missing padding and the URL-safe alphabet,
// all of which hosts and clipboards have been seen to produce.
func decodeBase64(body string) ([]byte, error) {
	body = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, body)
	body = strings.TrimRight(body, "=")
	if body == "" {
		return nil, errors.Wrap(ErrDecode, "payload is empty")
	}

	enc := base64.RawStdEncoding
	if strings.ContainsAny(body, "-_") {
		enc = base64.RawURLEncoding
	}
	raw, err := enc.DecodeString(body)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "invalid base64: %v", err)
	}
	return raw, nil
}

// DecodeText returns the binary content of a payload text, framed or not.
func DecodeText(s string) ([]byte, error) {
	f, err := SplitFrame(s)
	if err != nil {
		return nil, err
	}
	return decodeBase64(f.Body)
}
