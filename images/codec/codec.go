// Package codec converts host image payloads (base64, optionally framed as a data URL)
// into rasters and back.
package codec

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/nvr-ai/go-invert/images"
)

// DefaultMaxPixels bounds the decoded size of a single image (64 megapixels).
const DefaultMaxPixels = 64 << 20

var (
	// ErrDecode marks every failure to turn a payload into a raster.
	ErrDecode = errors.New("image decode failed")
	// ErrUnsupportedEncoding is returned when asked to produce a lossy or unknown format.
	ErrUnsupportedEncoding = errors.New("unsupported output encoding")
)

type decodeFunc func(io.Reader) (image.Image, error)
type configFunc func(io.Reader) (image.Config, error)

type decoder struct {
	decode decodeFunc
	config configFunc
}

var decoders = map[images.ImageFormat]decoder{
	images.FormatPNG:  {png.Decode, png.DecodeConfig},
	images.FormatJPEG: {jpeg.Decode, jpeg.DecodeConfig},
	images.FormatGIF:  {gif.Decode, gif.DecodeConfig},
	images.FormatWebP: {webp.Decode, webp.DecodeConfig},
	images.FormatBMP:  {bmp.Decode, bmp.DecodeConfig},
	images.FormatTIFF: {tiff.Decode, tiff.DecodeConfig},
}

// Config configures a Codec.
type Config struct {
	// MaxPixels is the largest width*height accepted on decode (default: DefaultMaxPixels).
	MaxPixels int `json:"max_pixels" yaml:"max_pixels"`

	// Logger for debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxPixels <= 0 {
		c.MaxPixels = DefaultMaxPixels
	}
}

func (c *Codec) logger() *slog.Logger {
	if c.cfg.Logger != nil {
		return c.cfg.Logger
	}
	return slog.Default()
}

// Codec decodes payloads into rasters and encodes rasters into payloads.
// A Codec is safe for concurrent use.
type Codec struct {
	cfg        Config
	bufferPool *sync.Pool
}

// New creates a codec with the given configuration.
func New(cfg Config) *Codec {
	cfg.defaults()
	return &Codec{
		cfg: cfg,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Bytes normalizes a payload to its binary image bytes and the format they hold.
// The content is sniffed; when it disagrees with the declared format the sniffed
// format wins.
//
// Arguments:
// - p: The payload, framed or unframed.
//
// Returns:
// - []byte: The encoded image bytes.
// - images.ImageFormat: The detected format.
// - error: Wrapping ErrDecode when the payload is empty, not base64 or not an image.
func (c *Codec) Bytes(p images.Payload) ([]byte, images.ImageFormat, error) {
	frame, err := SplitFrame(p.Data)
	if err != nil {
		return nil, "", err
	}
	raw, err := decodeBase64(frame.Body)
	if err != nil {
		return nil, "", err
	}

	declared := p.Format
	if frame.Framed {
		if f, ok := images.FormatFromMIME(frame.MIMEType); ok {
			declared = f
		}
	}

	sniffed, ok := images.Sniff(raw)
	if !ok {
		return nil, "", errors.Wrapf(ErrDecode, "payload is not a recognised image (declared %q)", declared)
	}
	if declared != "" && declared != sniffed {
		c.logger().Debug("payload format mismatch", "declared", declared, "sniffed", sniffed)
	}
	return raw, sniffed, nil
}

// Decode turns a payload into a raster.
//
// Arguments:
// - p: The payload, framed or unframed.
//
// Returns:
// - *images.Raster: The decoded pixels.
// - error: Wrapping ErrDecode on any failure; never an empty raster.
//
// @example
// r, err := c.Decode(images.Payload{Format: images.FormatPNG, Data: b64})
func (c *Codec) Decode(p images.Payload) (*images.Raster, error) {
	raw, format, err := c.Bytes(p)
	if err != nil {
		return nil, err
	}

	dec, ok := decoders[format]
	if !ok {
		return nil, errors.Wrapf(ErrDecode, "no decoder for %s", format)
	}

	cfg, err := dec.config(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "read %s header: %v", format, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.Wrapf(ErrDecode, "invalid image dimensions: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > c.cfg.MaxPixels {
		return nil, errors.Wrapf(ErrDecode, "image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, c.cfg.MaxPixels)
	}

	img, err := dec.decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "decode %s: %v", format, err)
	}
	return images.RasterFromImage(img), nil
}

// Encode serializes a raster into a payload of the given lossless format.
//
// Arguments:
// - r: The raster to encode.
// - format: The output format (PNG, BMP or TIFF; empty selects PNG).
// - framed: Whether to prefix the result with a data URL header.
//
// Returns:
// - images.Payload: The encoded payload.
// - error: Wrapping ErrUnsupportedEncoding for lossy or unknown formats.
func (c *Codec) Encode(r *images.Raster, format images.ImageFormat, framed bool) (images.Payload, error) {
	if format == "" {
		format = images.FormatPNG
	}
	if r == nil || r.Bounds().Empty() {
		return images.Payload{}, errors.New("cannot encode an empty raster")
	}

	buf := c.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		c.bufferPool.Put(buf)
	}()

	var err error
	switch format {
	case images.FormatPNG:
		err = png.Encode(buf, r.Image())
	case images.FormatTIFF:
		err = tiff.Encode(buf, r.Image(), &tiff.Options{Compression: tiff.Deflate})
	case images.FormatBMP:
		if !r.Image().Opaque() {
			return images.Payload{}, errors.Wrap(ErrUnsupportedEncoding, "bmp output cannot carry transparency")
		}
		err = bmp.Encode(buf, r.Image())
	default:
		return images.Payload{}, errors.Wrapf(ErrUnsupportedEncoding, "%q is not a lossless output format", format)
	}
	if err != nil {
		return images.Payload{}, errors.Wrapf(err, "encode %s", format)
	}

	body := base64.StdEncoding.EncodeToString(buf.Bytes())
	if framed {
		body = Attach(format, body)
	}
	return images.Payload{Format: format, Data: body, Framed: framed}, nil
}

var std = New(Config{})

// Decode decodes a payload with the default codec.
func Decode(p images.Payload) (*images.Raster, error) { return std.Decode(p) }

// Encode encodes a raster with the default codec.
func Encode(r *images.Raster, format images.ImageFormat, framed bool) (images.Payload, error) {
	return std.Encode(r, format, framed)
}
