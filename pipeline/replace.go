package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-invert/images"
	"github.com/nvr-ai/go-invert/office"
)

// Replacer writes an inverted payload back in place of its target.
type Replacer interface {
	Name() string
	// Framed reports whether the destination expects a data URL prefix.
	Framed() bool
	Replace(ctx context.Context, sc *Scope, t *Target, p images.Payload) error
}

// ShapeFill sets the shape fill to the inverted picture.
type ShapeFill struct{}

// Name implements Replacer.
func (ShapeFill) Name() string { return "shape-fill" }

// Framed implements Replacer.
func (ShapeFill) Framed() bool { return false }

// Replace queues the fill on the target shape and commits it.
func (ShapeFill) Replace(ctx context.Context, sc *Scope, t *Target, p images.Payload) error {
	if t.shape == nil || sc.Presentation == nil {
		return newError(HostWriteFailure, "fill "+t.ID, errors.New("target is not a shape"))
	}
	t.shape.SetFillImage(p.Data)
	if err := sc.Presentation.Sync(ctx); err != nil {
		return newError(HostWriteFailure, "fill "+t.ID, err)
	}
	return nil
}

// PictureReplace swaps an inline picture for the inverted one.
type PictureReplace struct{}

// Name implements Replacer.
func (PictureReplace) Name() string { return "picture-replace" }

// Framed implements Replacer.
func (PictureReplace) Framed() bool { return false }

// Replace queues the replacement and commits it.
func (PictureReplace) Replace(ctx context.Context, sc *Scope, t *Target, p images.Payload) error {
	if t.picture == nil || sc.Document == nil {
		return newError(HostWriteFailure, "replace "+t.ID, errors.New("target is not an inline picture"))
	}
	t.picture.ReplaceFromBase64(p.Data)
	if err := sc.Document.Sync(ctx); err != nil {
		return newError(HostWriteFailure, "replace "+t.ID, err)
	}
	return nil
}

// SelectionReplace overwrites the current selection with the inverted image.
type SelectionReplace struct{}

// Name implements Replacer.
func (SelectionReplace) Name() string { return "selection-replace" }

// Framed implements Replacer.
func (SelectionReplace) Framed() bool { return false }

// Replace writes through the host-agnostic selection API.
func (SelectionReplace) Replace(ctx context.Context, sc *Scope, t *Target, p images.Payload) error {
	sel := sc.Host.Selection
	if sel == nil {
		return newError(HostWriteFailure, "replace selection", office.ErrNotSupported)
	}
	if err := sel.SetSelectedImage(ctx, p.Data); err != nil {
		return newError(HostWriteFailure, "replace selection", err)
	}
	return nil
}

// ClipboardWrite puts the inverted image back on the clipboard.
type ClipboardWrite struct{}

// Name implements Replacer.
func (ClipboardWrite) Name() string { return "clipboard-write" }

// Framed implements Replacer. Clipboard data must describe its own type.
func (ClipboardWrite) Framed() bool { return true }

// Replace writes the framed image to the clipboard.
func (ClipboardWrite) Replace(ctx context.Context, sc *Scope, t *Target, p images.Payload) error {
	w, ok := sc.Host.Clipboard.(office.ClipboardWriter)
	if !ok {
		return newError(HostWriteFailure, "write clipboard", office.ErrNotSupported)
	}
	if err := w.WriteImage(ctx, p.Data); err != nil {
		if errors.Is(err, office.ErrPermissionDenied) {
			return newError(ClipboardPermissionDenied, "clipboard access was refused", err)
		}
		return newError(HostWriteFailure, "write clipboard", err)
	}
	return nil
}
