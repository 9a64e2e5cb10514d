// Package memhost is an in-memory document host. It backs the HTTP bridge, where
// the task pane forwards what the real host returned, and the pipeline tests.
package memhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/nvr-ai/go-invert/office"
)

// Shape is a selected presentation shape.
type Shape struct {
	// ShapeID identifies the shape.
	ShapeID string
	// Image is the unframed base64 export of the shape.
	Image string
	// Fill is the last image written through SetFillImage.
	Fill string
	// ExportErr, when set, rejects the export request.
	ExportErr error
	// FillErr, when set, fails the Sync that applies a fill.
	FillErr error
}

// Picture is an inline picture in the document selection.
type Picture struct {
	// Image is the unframed base64 picture source.
	Image string
	// Replaced is the last image written through ReplaceFromBase64.
	Replaced string
	// ReplaceErr, when set, fails the Sync that applies the replacement.
	ReplaceErr error
}

// Host is a scriptable in-memory host. Every field may be set before a run and
// inspected afterwards. Requests queued on a session only take effect on Sync.
type Host struct {
	mu sync.Mutex

	Env office.StaticEnvironment

	Shapes   []*Shape
	Pictures []*Picture

	// Selection is what the generic selection API returns.
	Selection       string
	SelectionErr    error
	SetSelectionErr error
	SelectionWrites []string

	ClipboardItems  []office.ClipboardItem
	ClipboardErr    error
	ClipboardWrites []string

	// PresentationErr and DocumentErr make the host-specific APIs fail at runtime.
	PresentationErr error
	DocumentErr     error

	// NoPresentation, NoDocument, NoSelection and NoClipboard remove an API entirely.
	NoPresentation bool
	NoDocument     bool
	NoSelection    bool
	NoClipboard    bool

	// Calls records every host round-trip in order, e.g. "export:s1", "sync".
	Calls []string
}

// New returns a host of the given type supporting the given requirement sets.
func New(host office.HostType, sets map[string]string) *Host {
	return &Host{Env: office.StaticEnvironment{HostType: host, Sets: sets}}
}

// Office bundles the APIs the host offers.
func (h *Host) Office() office.Host {
	oh := office.Host{Env: h.Env}
	if !h.NoPresentation {
		oh.Presentation = h
	}
	if !h.NoDocument {
		oh.Document = h
	}
	if !h.NoSelection {
		oh.Selection = h
	}
	if !h.NoClipboard {
		oh.Clipboard = h
	}
	return oh
}

// Writes counts every write-back the host received.
func (h *Host) Writes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.SelectionWrites) + len(h.ClipboardWrites)
	for _, s := range h.Shapes {
		if s.Fill != "" {
			n++
		}
	}
	for _, p := range h.Pictures {
		if p.Replaced != "" {
			n++
		}
	}
	return n
}

func (h *Host) record(call string) {
	h.mu.Lock()
	h.Calls = append(h.Calls, call)
	h.mu.Unlock()
}

// batch holds the requests queued since the last Sync.
type batch struct {
	h     *Host
	queue []func() error
}

func (b *batch) enqueue(fn func() error) { b.queue = append(b.queue, fn) }

// Sync applies queued requests in order. The first failing request aborts the
// rest, as a host does when a batch fails.
func (b *batch) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.h.record("sync")
	queue := b.queue
	b.queue = nil
	for _, fn := range queue {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// RunPresentation implements office.PresentationHost.
func (h *Host) RunPresentation(ctx context.Context, fn func(context.Context, office.PresentationSession) error) error {
	if h.PresentationErr != nil {
		return h.PresentationErr
	}
	return fn(ctx, &presentation{batch{h: h}})
}

// RunDocument implements office.DocumentHost.
func (h *Host) RunDocument(ctx context.Context, fn func(context.Context, office.DocumentSession) error) error {
	if h.DocumentErr != nil {
		return h.DocumentErr
	}
	return fn(ctx, &document{batch{h: h}})
}

type presentation struct{ batch }

func (p *presentation) SelectedShapeCount() *office.Pending[int] {
	res := office.NewPending[int]()
	p.enqueue(func() error {
		p.h.record("count")
		res.Resolve(len(p.h.Shapes))
		return nil
	})
	return res
}

func (p *presentation) SelectedShapes() *office.Pending[[]office.Shape] {
	res := office.NewPending[[]office.Shape]()
	p.enqueue(func() error {
		p.h.record("load-shapes")
		items := make([]office.Shape, len(p.h.Shapes))
		for i, s := range p.h.Shapes {
			items[i] = &shape{s: s, b: &p.batch}
		}
		res.Resolve(items)
		return nil
	})
	return res
}

type shape struct {
	s *Shape
	b *batch
}

func (s *shape) ID() string { return s.s.ShapeID }

func (s *shape) ImageAsBase64(format string) *office.Pending[string] {
	res := office.NewPending[string]()
	s.b.enqueue(func() error {
		s.b.h.record("export:" + s.s.ShapeID)
		if s.s.ExportErr != nil {
			res.Reject(s.s.ExportErr)
			return nil
		}
		res.Resolve(s.s.Image)
		return nil
	})
	return res
}

func (s *shape) SetFillImage(b64 string) {
	s.b.enqueue(func() error {
		s.b.h.record("fill:" + s.s.ShapeID)
		if s.s.FillErr != nil {
			return s.s.FillErr
		}
		s.b.h.mu.Lock()
		s.s.Fill = b64
		s.b.h.mu.Unlock()
		return nil
	})
}

type document struct{ batch }

func (d *document) SelectedInlinePictures() *office.Pending[[]office.InlinePicture] {
	res := office.NewPending[[]office.InlinePicture]()
	d.enqueue(func() error {
		d.h.record("load-pictures")
		items := make([]office.InlinePicture, len(d.h.Pictures))
		for i, p := range d.h.Pictures {
			items[i] = &picture{p: p, b: &d.batch, index: i}
		}
		res.Resolve(items)
		return nil
	})
	return res
}

type picture struct {
	p     *Picture
	b     *batch
	index int
}

func (p *picture) Base64ImageSrc() *office.Pending[string] {
	res := office.NewPending[string]()
	p.b.enqueue(func() error {
		p.b.h.record(fmt.Sprintf("picture-src:%d", p.index))
		res.Resolve(p.p.Image)
		return nil
	})
	return res
}

func (p *picture) ReplaceFromBase64(b64 string) {
	p.b.enqueue(func() error {
		p.b.h.record(fmt.Sprintf("picture-replace:%d", p.index))
		if p.p.ReplaceErr != nil {
			return p.p.ReplaceErr
		}
		p.b.h.mu.Lock()
		p.p.Replaced = b64
		p.b.h.mu.Unlock()
		return nil
	})
}

// SelectedImage implements office.SelectionDocument.
func (h *Host) SelectedImage(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h.record("get-selection")
	if h.SelectionErr != nil {
		return "", h.SelectionErr
	}
	return h.Selection, nil
}

// SetSelectedImage implements office.SelectionDocument.
func (h *Host) SetSelectedImage(ctx context.Context, b64 string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.record("set-selection")
	if h.SetSelectionErr != nil {
		return h.SetSelectionErr
	}
	h.mu.Lock()
	h.SelectionWrites = append(h.SelectionWrites, b64)
	h.mu.Unlock()
	return nil
}

// Read implements office.Clipboard.
func (h *Host) Read(ctx context.Context) ([]office.ClipboardItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.record("clipboard-read")
	if h.ClipboardErr != nil {
		return nil, h.ClipboardErr
	}
	return h.ClipboardItems, nil
}

// WriteImage implements office.ClipboardWriter.
func (h *Host) WriteImage(ctx context.Context, dataURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.record("clipboard-write")
	h.mu.Lock()
	h.ClipboardWrites = append(h.ClipboardWrites, dataURL)
	h.mu.Unlock()
	return nil
}
