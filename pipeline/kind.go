package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-invert/images/codec"
	"github.com/nvr-ai/go-invert/office"
)

// Kind is the terminal outcome of a run, or the class of a failure.
type Kind int

const (
	// Success means every acquired target was inverted and written back.
	Success Kind = iota
	// PartialSuccess means at least one target was written back and at least one skipped.
	PartialSuccess
	// NoSelectionFound means the user had nothing usable selected.
	NoSelectionFound
	// UnsupportedEnvironment means no strategy could run against this host.
	UnsupportedEnvironment
	// DecodeFailure means the image data was missing or malformed.
	DecodeFailure
	// HostWriteFailure means the host rejected the write-back.
	HostWriteFailure
	// ClipboardPermissionDenied means the user blocked clipboard access.
	ClipboardPermissionDenied
)

var kindNames = map[Kind]string{
	Success:                   "Success",
	PartialSuccess:            "PartialSuccess",
	NoSelectionFound:          "NoSelectionFound",
	UnsupportedEnvironment:    "UnsupportedEnvironment",
	DecodeFailure:             "DecodeFailure",
	HostWriteFailure:          "HostWriteFailure",
	ClipboardPermissionDenied: "ClipboardPermissionDenied",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return errors.Errorf("unknown result kind %q", b)
}

// OK reports whether the kind is a completed pass.
func (k Kind) OK() bool { return k == Success || k == PartialSuccess }

// fallsBack reports whether a failure of this kind lets the orchestrator try a
// weaker strategy. Write failures and refused clipboard access are terminal, and an
// empty selection is the user's to fix.
func (k Kind) fallsBack() bool {
	switch k {
	case UnsupportedEnvironment, DecodeFailure:
		return true
	default:
		return false
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	// Op names the step that failed, e.g. "export shape s1".
	Op string
	// Err is the underlying cause, may be nil.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	default:
		return e.Op + ": " + e.Err.Error()
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf classifies any error returned by a strategy or collaborator.
// Unclassified host errors count as an unsupported environment so that a fallback
// is still attempted.
func KindOf(err error) Kind {
	var pe *Error
	switch {
	case err == nil:
		return Success
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, office.ErrPermissionDenied):
		return ClipboardPermissionDenied
	case errors.Is(err, codec.ErrDecode):
		return DecodeFailure
	default:
		return UnsupportedEnvironment
	}
}
