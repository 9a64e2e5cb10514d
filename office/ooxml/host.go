package ooxml

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-invert/office"
)

// Environment describes the package as a host: Word packages offer inline
// pictures, PowerPoint packages offer shape export. Both offer the generic
// selection API.
func (p *Package) Environment() office.StaticEnvironment {
	sets := map[string]string{office.SetImageCoercion: "1.2"}
	host := office.HostWord
	if p.typ == TypePptx {
		host = office.HostPowerPoint
		sets[office.SetPowerPointAPI] = "1.10"
	} else {
		sets[office.SetWordAPI] = "1.3"
	}
	return office.StaticEnvironment{HostType: host, Sets: sets}
}

// Host bundles the package APIs for the pipeline.
func (p *Package) Host() office.Host {
	h := office.Host{Env: p.Environment(), Selection: p}
	if p.typ == TypePptx {
		h.Presentation = p
	} else {
		h.Document = p
	}
	return h
}

func (p *Package) selection() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.selected))
	for _, i := range p.selected {
		out = append(out, p.media[i])
	}
	return out
}

// RunPresentation implements office.PresentationHost.
func (p *Package) RunPresentation(ctx context.Context, fn func(context.Context, office.PresentationSession) error) error {
	if p.typ != TypePptx {
		return errors.Wrap(office.ErrNotSupported, "not a presentation")
	}
	return fn(ctx, &presentation{session{p: p}})
}

// RunDocument implements office.DocumentHost.
func (p *Package) RunDocument(ctx context.Context, fn func(context.Context, office.DocumentSession) error) error {
	if p.typ != TypeDocx {
		return errors.Wrap(office.ErrNotSupported, "not a word document")
	}
	return fn(ctx, &document{session{p: p}})
}

// SelectedImage implements office.SelectionDocument with the first selected picture.
func (p *Package) SelectedImage(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sel := p.selection()
	if len(sel) == 0 {
		return "", nil
	}
	return base64.StdEncoding.EncodeToString(p.image(sel[0])), nil
}

// SetSelectedImage implements office.SelectionDocument by replacing the first
// selected picture.
func (p *Package) SetSelectedImage(ctx context.Context, b64 string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel := p.selection()
	if len(sel) == 0 {
		return errors.New("nothing selected")
	}
	return p.replaceBase64(sel[0], b64)
}

func (p *Package) replaceBase64(name, b64 string) error {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return errors.Wrapf(err, "replacement for %s", name)
	}
	return p.replace(name, data)
}

// session queues requests until Sync, like a host request context.
type session struct {
	p     *Package
	queue []func() error
}

func (s *session) enqueue(fn func() error) { s.queue = append(s.queue, fn) }

func (s *session) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	queue := s.queue
	s.queue = nil
	for _, fn := range queue {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

type presentation struct{ session }

func (s *presentation) SelectedShapeCount() *office.Pending[int] {
	res := office.NewPending[int]()
	s.enqueue(func() error {
		res.Resolve(len(s.p.selection()))
		return nil
	})
	return res
}

func (s *presentation) SelectedShapes() *office.Pending[[]office.Shape] {
	res := office.NewPending[[]office.Shape]()
	s.enqueue(func() error {
		sel := s.p.selection()
		shapes := make([]office.Shape, len(sel))
		for i, name := range sel {
			shapes[i] = &picture{s: &s.session, name: name}
		}
		res.Resolve(shapes)
		return nil
	})
	return res
}

type document struct{ session }

func (s *document) SelectedInlinePictures() *office.Pending[[]office.InlinePicture] {
	res := office.NewPending[[]office.InlinePicture]()
	s.enqueue(func() error {
		sel := s.p.selection()
		pics := make([]office.InlinePicture, len(sel))
		for i, name := range sel {
			pics[i] = &picture{s: &s.session, name: name}
		}
		res.Resolve(pics)
		return nil
	})
	return res
}

// picture is a media part seen as a shape or an inline picture.
type picture struct {
	s    *session
	name string
}

func (pc *picture) ID() string { return pc.name }

func (pc *picture) ImageAsBase64(string) *office.Pending[string] { return pc.Base64ImageSrc() }

func (pc *picture) SetFillImage(b64 string) { pc.ReplaceFromBase64(b64) }

func (pc *picture) Base64ImageSrc() *office.Pending[string] {
	res := office.NewPending[string]()
	pc.s.enqueue(func() error {
		res.Resolve(base64.StdEncoding.EncodeToString(pc.s.p.image(pc.name)))
		return nil
	})
	return res
}

func (pc *picture) ReplaceFromBase64(b64 string) {
	pc.s.enqueue(func() error {
		return pc.s.p.replaceBase64(pc.name, b64)
	})
}
