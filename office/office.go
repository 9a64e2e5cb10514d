// Package office - Contracts for the document host collaborators the inversion
// pipeline talks to: environment descriptors, batched host sessions, clipboard and
// status sink.
package office

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// HostType identifies the document application embedding the add-in.
type HostType string

// HostType constants
const (
	HostWord       HostType = "Word"
	HostPowerPoint HostType = "PowerPoint"
	HostExcel      HostType = "Excel"
	HostOneNote    HostType = "OneNote"
	HostOutlook    HostType = "Outlook"
	HostUnknown    HostType = "Unknown"
)

// ParseHostType maps a host name to a HostType, case-insensitively.
func ParseHostType(s string) HostType {
	for _, h := range []HostType{HostWord, HostPowerPoint, HostExcel, HostOneNote, HostOutlook} {
		if strings.EqualFold(string(h), strings.TrimSpace(s)) {
			return h
		}
	}
	return HostUnknown
}

var (
	// ErrNotSynced is returned when a queued result is read before its session synced.
	ErrNotSynced = errors.New("result read before sync")
	// ErrPermissionDenied is returned by a clipboard the user refused access to.
	ErrPermissionDenied = errors.New("clipboard permission denied")
	// ErrNotSupported is returned by a host that does not implement an API at runtime,
	// even when the environment advertised it.
	ErrNotSupported = errors.New("api not supported by host")
)

// Environment describes the running host. Implementations must answer without I/O.
type Environment interface {
	// Host returns the host application type.
	Host() HostType
	// IsSetSupported reports whether the requirement set name is available at
	// minVersion or later.
	IsSetSupported(name, minVersion string) bool
}

// Session is a batch of queued host requests. Nothing queued on a session is
// readable or applied until Sync returns.
type Session interface {
	Sync(ctx context.Context) error
}

// Shape is a selected presentation shape.
type Shape interface {
	// ID identifies the shape within its presentation.
	ID() string
	// ImageAsBase64 queues a rendered export of the shape in the given format.
	// The export never carries a data URL prefix.
	ImageAsBase64(format string) *Pending[string]
	// SetFillImage queues replacing the shape fill with an unframed base64 image.
	SetFillImage(base64 string)
}

// PresentationSession is a batch against a presentation.
type PresentationSession interface {
	Session
	// SelectedShapeCount queues a count of the selected shapes.
	SelectedShapeCount() *Pending[int]
	// SelectedShapes queues loading the selected shapes.
	SelectedShapes() *Pending[[]Shape]
}

// InlinePicture is a picture embedded in the text flow of a document.
type InlinePicture interface {
	// Base64ImageSrc queues reading the picture bytes as unframed base64.
	Base64ImageSrc() *Pending[string]
	// ReplaceFromBase64 queues replacing the picture with an unframed base64 image.
	ReplaceFromBase64(base64 string)
}

// DocumentSession is a batch against a word-processing document.
type DocumentSession interface {
	Session
	// SelectedInlinePictures queues loading the inline pictures in the selection.
	SelectedInlinePictures() *Pending[[]InlinePicture]
}

// PresentationHost runs batches against the active presentation.
type PresentationHost interface {
	RunPresentation(ctx context.Context, fn func(ctx context.Context, s PresentationSession) error) error
}

// DocumentHost runs batches against the active document.
type DocumentHost interface {
	RunDocument(ctx context.Context, fn func(ctx context.Context, s DocumentSession) error) error
}

// SelectionDocument is the host-agnostic document API: read the selection coerced
// to an image, or replace the selection with an image.
type SelectionDocument interface {
	// SelectedImage returns the current selection as base64 image data.
	SelectedImage(ctx context.Context) (string, error)
	// SetSelectedImage inserts or replaces the selection with an unframed base64 image.
	SetSelectedImage(ctx context.Context, base64 string) error
}

// ClipboardItem is one clipboard entry with its typed representations.
type ClipboardItem struct {
	// Types maps media types (e.g. "image/png") to their binary content.
	Types map[string][]byte
}

// Clipboard reads the system clipboard.
type Clipboard interface {
	// Read returns the clipboard entries or ErrPermissionDenied.
	Read(ctx context.Context) ([]ClipboardItem, error)
}

// ClipboardWriter writes a self-describing (data URL framed) image to the clipboard.
type ClipboardWriter interface {
	WriteImage(ctx context.Context, dataURL string) error
}

// Host bundles the collaborators available in one environment. Any API field may be
// nil when the host does not offer it.
type Host struct {
	Env          Environment
	Presentation PresentationHost
	Document     DocumentHost
	Selection    SelectionDocument
	Clipboard    Clipboard
}
