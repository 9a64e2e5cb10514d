package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-invert/images"
	"github.com/nvr-ai/go-invert/images/codec"
	"github.com/nvr-ai/go-invert/office"
)

// Scope holds the host handles open for one strategy attempt. Session fields are
// only set inside the matching host run.
type Scope struct {
	Host         office.Host
	Presentation office.PresentationSession
	Document     office.DocumentSession
}

// Target is one selected item. Its payload is loaded on demand so that each host
// read is paired with its own sync right before the item is processed.
type Target struct {
	// ID names the target in reports, e.g. "shape:3" or "selection".
	ID string

	load    func(ctx context.Context) (images.Payload, error)
	shape   office.Shape
	picture office.InlinePicture
}

// Load fetches the target's encoded image from the host.
func (t *Target) Load(ctx context.Context) (images.Payload, error) {
	if t.load == nil {
		return images.Payload{}, newError(DecodeFailure, "load "+t.ID, errors.New("target has no image source"))
	}
	return t.load(ctx)
}

func preloaded(p images.Payload) func(context.Context) (images.Payload, error) {
	return func(context.Context) (images.Payload, error) { return p, nil }
}

// Acquirer obtains the selected targets from the document.
type Acquirer interface {
	Name() string
	Acquire(ctx context.Context, sc *Scope) ([]*Target, error)
}

// Guidance shown when a host-specific path finds nothing selected.
const (
	hintSelectShape    = "No selected object detected.\nClick the picture itself (eight handles visible) and try again."
	hintInlinePicture  = "No inline picture detected.\nRight-click the picture, set Wrap Text to In Line with Text, and try again."
	hintEmptySelection = "The current selection holds no image.\nSelect a picture and try again."
	hintEmptyClipboard = "The clipboard holds no image.\nCopy a picture and try again."
)

// ShapeExport exports every selected presentation shape as a rendered PNG.
type ShapeExport struct{}

// Name implements Acquirer.
func (ShapeExport) Name() string { return "shape-export" }

// Acquire counts the selection, loads the shapes and returns one target per shape.
func (ShapeExport) Acquire(ctx context.Context, sc *Scope) ([]*Target, error) {
	s := sc.Presentation
	if s == nil {
		return nil, newError(UnsupportedEnvironment, "shape export", office.ErrNotSupported)
	}

	count := s.SelectedShapeCount()
	if err := s.Sync(ctx); err != nil {
		return nil, newError(UnsupportedEnvironment, "count selected shapes", err)
	}
	n, err := count.Value()
	if err != nil {
		return nil, newError(UnsupportedEnvironment, "count selected shapes", err)
	}
	if n == 0 {
		return nil, newError(NoSelectionFound, hintSelectShape, nil)
	}

	loaded := s.SelectedShapes()
	if err := s.Sync(ctx); err != nil {
		return nil, newError(UnsupportedEnvironment, "load selected shapes", err)
	}
	shapes, err := loaded.Value()
	if err != nil {
		return nil, newError(UnsupportedEnvironment, "load selected shapes", err)
	}

	targets := make([]*Target, 0, len(shapes))
	for i, shape := range shapes {
		shape := shape
		id := shape.ID()
		if id == "" {
			id = fmt.Sprint(i)
		}
		targets = append(targets, &Target{
			ID:    "shape:" + id,
			shape: shape,
			load: func(ctx context.Context) (images.Payload, error) {
				export := shape.ImageAsBase64("Png")
				if err := s.Sync(ctx); err != nil {
					return images.Payload{}, newError(UnsupportedEnvironment, "export shape "+id, err)
				}
				b64, err := export.Value()
				if err != nil {
					return images.Payload{}, newError(UnsupportedEnvironment, "export shape "+id, err)
				}
				return images.Payload{Format: images.FormatPNG, Data: b64}, nil
			},
		})
	}
	return targets, nil
}

// EmbeddedPicture reads the first inline picture of the document selection.
type EmbeddedPicture struct{}

// Name implements Acquirer.
func (EmbeddedPicture) Name() string { return "embedded-picture" }

// Acquire returns the first inline picture in the selection.
func (EmbeddedPicture) Acquire(ctx context.Context, sc *Scope) ([]*Target, error) {
	s := sc.Document
	if s == nil {
		return nil, newError(UnsupportedEnvironment, "inline pictures", office.ErrNotSupported)
	}

	loaded := s.SelectedInlinePictures()
	if err := s.Sync(ctx); err != nil {
		return nil, newError(UnsupportedEnvironment, "load inline pictures", err)
	}
	pictures, err := loaded.Value()
	if err != nil {
		return nil, newError(UnsupportedEnvironment, "load inline pictures", err)
	}
	if len(pictures) == 0 {
		return nil, newError(NoSelectionFound, hintInlinePicture, nil)
	}

	pic := pictures[0]
	return []*Target{{
		ID:      "picture:0",
		picture: pic,
		load: func(ctx context.Context) (images.Payload, error) {
			src := pic.Base64ImageSrc()
			if err := s.Sync(ctx); err != nil {
				return images.Payload{}, newError(UnsupportedEnvironment, "read picture", err)
			}
			b64, err := src.Value()
			if err != nil {
				return images.Payload{}, newError(UnsupportedEnvironment, "read picture", err)
			}
			if strings.TrimSpace(b64) == "" {
				return images.Payload{}, newError(DecodeFailure, "cannot read picture data", nil)
			}
			return payloadFromText(b64, images.FormatPNG), nil
		},
	}}, nil
}

// ClipboardRead takes the image from the system clipboard, preferring PNG, then
// JPEG, then any other image type the codec can read.
type ClipboardRead struct{}

// Name implements Acquirer.
func (ClipboardRead) Name() string { return "clipboard" }

// Acquire reads the clipboard and returns its best image entry.
func (ClipboardRead) Acquire(ctx context.Context, sc *Scope) ([]*Target, error) {
	cb := sc.Host.Clipboard
	if cb == nil {
		return nil, newError(UnsupportedEnvironment, "clipboard", office.ErrNotSupported)
	}

	items, err := cb.Read(ctx)
	if err != nil {
		if errors.Is(err, office.ErrPermissionDenied) {
			return nil, newError(ClipboardPermissionDenied, "clipboard access was refused", err)
		}
		return nil, newError(UnsupportedEnvironment, "read clipboard", err)
	}

	format, data, ok := pickClipboardImage(items)
	if !ok {
		return nil, newError(NoSelectionFound, hintEmptyClipboard, nil)
	}
	p := images.Payload{
		Format: format,
		Data:   codec.Attach(format, base64.StdEncoding.EncodeToString(data)),
		Framed: true,
	}
	return []*Target{{ID: "clipboard", load: preloaded(p)}}, nil
}

func pickClipboardImage(items []office.ClipboardItem) (images.ImageFormat, []byte, bool) {
	for _, want := range []images.ImageFormat{images.FormatPNG, images.FormatJPEG} {
		for _, it := range items {
			for mime, data := range it.Types {
				if f, ok := images.FormatFromMIME(mime); ok && f == want && len(data) > 0 {
					return f, data, true
				}
			}
		}
	}
	for _, it := range items {
		for mime, data := range it.Types {
			if !strings.HasPrefix(strings.ToLower(mime), "image/") || len(data) == 0 {
				continue
			}
			if f, ok := images.Sniff(data); ok {
				return f, data, true
			}
		}
	}
	return "", nil, false
}

// GenericSelection reads the selection coerced to an image through the
// host-agnostic document API. It works on every host but guarantees the least.
type GenericSelection struct{}

// Name implements Acquirer.
func (GenericSelection) Name() string { return "generic-selection" }

// Acquire reads the current selection as an image.
func (GenericSelection) Acquire(ctx context.Context, sc *Scope) ([]*Target, error) {
	sel := sc.Host.Selection
	if sel == nil {
		return nil, newError(UnsupportedEnvironment, "generic selection", office.ErrNotSupported)
	}
	b64, err := sel.SelectedImage(ctx)
	if err != nil {
		return nil, newError(UnsupportedEnvironment, "generic read failed", err)
	}
	if strings.TrimSpace(b64) == "" {
		return nil, newError(NoSelectionFound, hintEmptySelection, nil)
	}
	return []*Target{{ID: "selection", load: preloaded(payloadFromText(b64, images.FormatPNG))}}, nil
}

func payloadFromText(s string, format images.ImageFormat) images.Payload {
	s = strings.TrimSpace(s)
	return images.Payload{
		Format: format,
		Data:   s,
		Framed: strings.HasPrefix(strings.ToLower(s), "data:"),
	}
}
